package dataflow

import (
	"sort"

	"golang.org/x/tools/container/intsets"

	"github.com/xplshn/ptxlower/pkg/ptx"
)

// ToSSA rewrites the graph into SSA form. Phis are placed on the iterated
// dominance frontier of every register that is live across blocks. The
// first definition of a register keeps its id; later definitions receive
// fresh ids above every id in the kernel. A read with no reaching
// definition refers to a per-register id that nothing defines, so Producer
// reports ErrNoProducer for it. Guarded definitions record the value they
// merge with in Operand.Prior.
func (g *CFG) ToSSA() error {
	if g.inSSA { return nil }
	g.inSSA = true
	if len(g.blocks) == 0 { return nil }
	g.origin = make(map[ptx.RegisterID]ptx.RegisterID)

	idom, order := g.dominators()
	frontiers := g.frontiers(idom)
	g.placePhis(frontiers)

	r := &renamer{
		g:      g,
		stacks: make(map[ptx.RegisterID][]ptx.RegisterID),
		used:   make(map[ptx.RegisterID]bool),
		undef:  make(map[ptx.RegisterID]ptx.RegisterID),
	}
	for id := range g.types {
		if id >= r.next { r.next = id + 1 }
	}

	children := make([][]*block, len(g.blocks))
	for _, b := range order[1:] {
		p := idom[b.index]
		children[p] = append(children[p], b)
	}
	r.walk(g.blocks[0], children)

	reachable := make([]bool, len(g.blocks))
	for _, b := range order {
		reachable[b.index] = true
	}
	for _, b := range g.blocks {
		if !reachable[b.index] { r.walk(b, children) }
	}

	g.collectDefs()
	return nil
}

// dominators computes immediate dominators with the Cooper, Harvey and
// Kennedy iteration. It returns idom indexed by block index (-1 for
// unreachable blocks) and the reverse postorder of reachable blocks.
func (g *CFG) dominators() ([]int, []*block) {
	n := len(g.blocks)
	visited := make([]bool, n)
	var post []*block
	var dfs func(b *block)
	dfs = func(b *block) {
		visited[b.index] = true
		for _, s := range b.successors() {
			if !visited[s.index] { dfs(s) }
		}
		post = append(post, b)
	}
	dfs(g.blocks[0])

	rpo := make([]*block, len(post))
	rpoNum := make([]int, n)
	for i := range rpoNum {
		rpoNum[i] = -1
	}
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	for i, b := range rpo {
		rpoNum[b.index] = i
	}

	idom := make([]int, n)
	for i := range idom {
		idom[i] = -1
	}
	entry := g.blocks[0].index
	idom[entry] = entry

	intersect := func(a, b int) int {
		for a != b {
			for rpoNum[a] > rpoNum[b] {
				a = idom[a]
			}
			for rpoNum[b] > rpoNum[a] {
				b = idom[b]
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			newIdom := -1
			for _, p := range b.preds {
				if rpoNum[p.index] < 0 || idom[p.index] < 0 { continue }
				if newIdom < 0 {
					newIdom = p.index
				} else {
					newIdom = intersect(p.index, newIdom)
				}
			}
			if newIdom >= 0 && idom[b.index] != newIdom {
				idom[b.index] = newIdom
				changed = true
			}
		}
	}
	return idom, rpo
}

func (g *CFG) frontiers(idom []int) []intsets.Sparse {
	df := make([]intsets.Sparse, len(g.blocks))
	for _, b := range g.blocks {
		if idom[b.index] < 0 { continue }
		var preds []*block
		for _, p := range b.preds {
			if idom[p.index] >= 0 { preds = append(preds, p) }
		}
		if len(preds) < 2 { continue }
		for _, p := range preds {
			for runner := p.index; runner != idom[b.index]; runner = idom[runner] {
				df[runner].Insert(b.index)
				if runner == idom[runner] { break }
			}
		}
	}
	return df
}

// placePhis inserts phis for registers read in a block before any write in
// that block, the semi-pruned form.
func (g *CFG) placePhis(df []intsets.Sparse) {
	var globals intsets.Sparse
	defsites := make(map[ptx.RegisterID]*intsets.Sparse)

	for _, b := range g.blocks {
		var killed intsets.Sparse
		for _, inst := range b.instructions {
			for _, u := range inst.Uses() {
				if !killed.Has(int(u.Reg)) { globals.Insert(int(u.Reg)) }
			}
			for _, d := range inst.Defs() {
				if inst.Guarded() && !killed.Has(int(d.Reg)) { globals.Insert(int(d.Reg)) }
				killed.Insert(int(d.Reg))
				s, ok := defsites[d.Reg]
				if !ok {
					s = new(intsets.Sparse)
					defsites[d.Reg] = s
				}
				s.Insert(b.index)
			}
		}
	}

	var regs []int
	regs = globals.AppendTo(regs)
	sort.Ints(regs)
	for _, v := range regs {
		id := ptx.RegisterID(v)
		sites, ok := defsites[id]
		if !ok { continue }

		var placed, queued intsets.Sparse
		var work []int
		work = sites.AppendTo(work)
		queued.Copy(sites)
		for len(work) > 0 {
			x := work[len(work)-1]
			work = work[:len(work)-1]
			var frontier []int
			for _, y := range df[x].AppendTo(frontier) {
				if placed.Has(y) { continue }
				placed.Insert(y)
				b := g.blocks[y]
				reg := Register{ID: id, Type: g.types[id]}
				b.phis = append(b.phis, Phi{D: reg, S: make([]Register, len(b.preds))})
				b.origins = append(b.origins, id)
				if queued.Insert(y) { work = append(work, y) }
			}
		}
	}
}

type renamer struct {
	g      *CFG
	stacks map[ptx.RegisterID][]ptx.RegisterID
	used   map[ptx.RegisterID]bool
	undef  map[ptx.RegisterID]ptx.RegisterID
	next   ptx.RegisterID
}

func (r *renamer) fresh(orig ptx.RegisterID) ptx.RegisterID {
	id := r.next
	r.next++
	r.g.types[id] = r.g.types[orig]
	r.g.origin[id] = orig
	return id
}

// define allocates the SSA name of a new definition of orig.
func (r *renamer) define(orig ptx.RegisterID) ptx.RegisterID {
	id := orig
	if r.used[orig] {
		id = r.fresh(orig)
	}
	r.used[orig] = true
	r.stacks[orig] = append(r.stacks[orig], id)
	return id
}

// current returns the reaching definition of orig.
func (r *renamer) current(orig ptx.RegisterID) ptx.RegisterID {
	if s := r.stacks[orig]; len(s) > 0 { return s[len(s)-1] }
	if id, ok := r.undef[orig]; ok { return id }
	id := r.fresh(orig)
	r.undef[orig] = id
	return id
}

func (r *renamer) walk(b *block, children [][]*block) {
	var pushed []ptx.RegisterID

	for i := range b.phis {
		orig := b.phis[i].D.ID
		b.phis[i].D.ID = r.define(orig)
		pushed = append(pushed, orig)
	}

	for _, inst := range b.instructions {
		for _, u := range inst.Uses() {
			u.Reg = r.current(u.Reg)
		}
		for _, d := range inst.Defs() {
			orig := d.Reg
			if inst.Guarded() {
				prior := r.current(orig)
				d.Prior = &prior
			}
			d.Reg = r.define(orig)
			pushed = append(pushed, orig)
		}
	}

	for _, s := range b.successors() {
		j := s.predIndex(b)
		for i := range s.phis {
			orig := s.origins[i]
			s.phis[i].S[j] = Register{ID: r.current(orig), Type: s.phis[i].D.Type}
		}
	}

	for _, c := range children[b.index] {
		r.walk(c, children)
	}

	for _, orig := range pushed {
		s := r.stacks[orig]
		r.stacks[orig] = s[:len(s)-1]
	}
}
