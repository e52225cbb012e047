package network

import (
	"acflow/types"
)

// Network 潮流计算网络,元件编号即在各自列表中的下标
type Network struct {
	Buses      []*Bus       // 母线
	Branches   []*Branch    // 支路
	Shunts     []*Shunt     // 并联补偿
	Loads      []*Load      // 负荷
	Generators []*Generator // 发电机
	listeners  []Listener
	busByID    map[string]*Bus
}

// New 创建空网络
func New() *Network {
	return &Network{busByID: map[string]*Bus{}}
}

// AddListener 注册网络事件监听
func (n *Network) AddListener(l Listener) {
	n.listeners = append(n.listeners, l)
}

// RemoveListener 移除网络事件监听
func (n *Network) RemoveListener(l Listener) {
	for i, x := range n.listeners {
		if x == l {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

// AddBus 添加母线并分配编号
func (n *Network) AddBus(b *Bus) *Bus {
	b.Num = len(n.Buses)
	b.network = n
	if b.V == 0 {
		b.V = 1
	}
	n.Buses = append(n.Buses, b)
	if b.ID != "" {
		n.busByID[b.ID] = b
	}
	return b
}

// AddBranch 添加支路并分配编号
func (n *Network) AddBranch(br *Branch) *Branch {
	br.Num = len(n.Branches)
	br.network = n
	if br.R1 == 0 {
		br.R1 = 1
	}
	n.Branches = append(n.Branches, br)
	return br
}

// AddShunt 添加并联补偿并分配编号
func (n *Network) AddShunt(sh *Shunt) *Shunt {
	sh.Num = len(n.Shunts)
	sh.network = n
	n.Shunts = append(n.Shunts, sh)
	return sh
}

// AddLoad 添加负荷并分配编号
func (n *Network) AddLoad(l *Load) *Load {
	l.Num = len(n.Loads)
	l.network = n
	n.Loads = append(n.Loads, l)
	return l
}

// AddGenerator 添加发电机并分配编号
func (n *Network) AddGenerator(g *Generator) *Generator {
	g.Num = len(n.Generators)
	g.network = n
	if g.ReactiveKey == 0 {
		g.ReactiveKey = 1
	}
	n.Generators = append(n.Generators, g)
	return g
}

// Bus 按编号获取母线
func (n *Network) Bus(num int) *Bus {
	if num < 0 || num >= len(n.Buses) {
		return nil
	}
	return n.Buses[num]
}

// BusByID 按标识获取母线
func (n *Network) BusByID(id string) (*Bus, bool) {
	b, ok := n.busByID[id]
	return b, ok
}

// SlackBuses 全部投运平衡母线(按编号)
func (n *Network) SlackBuses() []*Bus {
	var list []*Bus
	for _, b := range n.Buses {
		if b.Slack && !b.Disabled {
			list = append(list, b)
		}
	}
	return list
}

// ReferenceBus 参考母线: 标记为参考的平衡母线,没有时取编号最小的平衡母线
func (n *Network) ReferenceBus() *Bus {
	slacks := n.SlackBuses()
	for _, b := range slacks {
		if b.Reference {
			return b
		}
	}
	if len(slacks) > 0 {
		return slacks[0]
	}
	return nil
}

// Element 按类型和编号获取元件的停运接口
func (n *Network) Element(element types.ElementType, num int) Disableable {
	switch element {
	case types.ElementBus:
		if num >= 0 && num < len(n.Buses) {
			return n.Buses[num]
		}
	case types.ElementBranch:
		if num >= 0 && num < len(n.Branches) {
			return n.Branches[num]
		}
	case types.ElementShunt:
		if num >= 0 && num < len(n.Shunts) {
			return n.Shunts[num]
		}
	case types.ElementLoad:
		if num >= 0 && num < len(n.Loads) {
			return n.Loads[num]
		}
	case types.ElementGenerator:
		if num >= 0 && num < len(n.Generators) {
			return n.Generators[num]
		}
	}
	return nil
}

// Disableable 可停运元件
type Disableable interface {
	IsDisabled() bool
	SetDisabled(disabled bool)
}

func (n *Network) fire(f func(l Listener)) {
	for _, l := range n.listeners {
		f(l)
	}
}
