// Copyright 2024 bbaa
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"sync"

	"git.bbaa.fun/bbaa/wynn-inference/core/item"
	"git.bbaa.fun/bbaa/wynn-inference/core/plugin/pluginabi"
	"github.com/fatih/color"
)

type ItemCore struct {
	BasePlugin
	chain *item.Chain
	ref   *item.Reference
	lock  sync.RWMutex
}

func (ic *ItemCore) Init(pm pluginabi.PluginManager) error {
	err := ic.BasePlugin.Init(pm, ic)
	if err != nil {
		return err
	}
	ic.ref = item.EmptyReference()
	ic.chain = item.NewChain(ic.ref, ic)
	return nil
}

// SetReference swaps the reference data. Every stack is re-annotated on its
// next lookup because the new chain carries a new id.
func (ic *ItemCore) SetReference(ref *item.Reference) {
	if ref == nil {
		ref = item.EmptyReference()
	}
	chain := item.NewChain(ref, ic)
	ic.lock.Lock()
	ic.ref = ref
	ic.chain = chain
	ic.lock.Unlock()
	ic.Println(color.YellowString("物品数据已更新: "), color.GreenString("%d", len(ref.Gear)), color.YellowString(" 件装备, "), color.GreenString("%d", len(ref.Ingredients)), color.YellowString(" 种材料"))
}

func (ic *ItemCore) Reference() *item.Reference {
	ic.lock.RLock()
	defer ic.lock.RUnlock()
	return ic.ref
}

func (ic *ItemCore) Annotate(stack *item.ItemStack) item.Annotation {
	ic.lock.RLock()
	chain := ic.chain
	ic.lock.RUnlock()
	return chain.Annotate(stack)
}

func (ic *ItemCore) Matching(stack *item.ItemStack) []item.Kind {
	ic.lock.RLock()
	chain := ic.chain
	ic.lock.RUnlock()
	return chain.Matching(stack)
}

func (ic *ItemCore) Name() string {
	return "ItemCore"
}

func (ic *ItemCore) DisplayName() string {
	return "物品核心"
}
