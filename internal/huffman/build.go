package huffman

import "container/heap"

// node is an arena entry: either a leaf (symbol) or an internal node
// (left/right are indices into the same arena).
type node[S Symbol] struct {
	freq        int
	isLeaf      bool
	symbol      S
	left, right int
}

// Build constructs a canonical Huffman tree from freq and flattens it into
// the wire pair-table representation, returning the table alongside the
// root-to-leaf bit path for every symbol that appears in it.
//
// An empty freq produces an empty Table (the "single leaf for the null
// symbol" case: there is nothing to split, so there are no pairs). A freq
// with exactly one distinct key (which, by construction, can only be the
// null terminator: every encoded string contributes at least a null) gets
// a second, otherwise-unused symbol injected with frequency 1 so the tree
// always has at least two leaves and no symbol is assigned an empty code.
func Build[S Symbol](freq map[S]int) (Table, map[S]Code) {
	if len(freq) == 0 {
		return nil, nil
	}

	f := make(map[S]int, len(freq)+1)
	for k, v := range freq {
		f[k] = v
	}
	if len(f) == 1 {
		f[unusedSymbol(f)] = 1
	}

	arena := make([]node[S], 0, 2*len(f)-1)
	pq := make(priorityQueue, 0, len(f))
	for sym, fr := range f {
		idx := len(arena)
		arena = append(arena, node[S]{freq: fr, isLeaf: true, symbol: sym})
		pq = append(pq, pqItem{nodeIdx: idx, freq: fr})
	}
	heap.Init(&pq)

	for len(pq) > 1 {
		a := heap.Pop(&pq).(pqItem)
		b := heap.Pop(&pq).(pqItem)
		idx := len(arena)
		arena = append(arena, node[S]{freq: a.freq + b.freq, left: a.nodeIdx, right: b.nodeIdx})
		heap.Push(&pq, pqItem{nodeIdx: idx, freq: a.freq + b.freq})
	}
	rootIdx := pq[0].nodeIdx

	codes := make(map[S]Code, len(f))
	assignCodes(arena, rootIdx, nil, codes)

	return flatten(arena, rootIdx), codes
}

// unusedSymbol returns a symbol not already present as a key of f,
// preferring small values so the injected leaf stays predictable in tests.
func unusedSymbol[S Symbol](f map[S]int) S {
	for s := S(1); ; s++ {
		if _, ok := f[s]; !ok {
			return s
		}
	}
}

func assignCodes[S Symbol](arena []node[S], idx int, path []byte, codes map[S]Code) {
	n := &arena[idx]
	if n.isLeaf {
		cp := make([]byte, len(path))
		copy(cp, path)
		codes[n.symbol] = Code{Bits: cp}
		return
	}
	assignCodes(arena, n.left, append(path, 0), codes)
	assignCodes(arena, n.right, append(path, 1), codes)
}

// flatten builds the wire pair table via a pool/ordered-refs construction: an
// unordered pool of pairs grown as internal children are discovered, a
// parallel ordered-refs list of pool indices in BFS order (excluding the
// root), and a node->pool-index map. After the BFS, the root's pool index
// is appended last, so materializing pairs in ordered-refs order puts the
// root at Table[len(Table)-1].
func flatten[S Symbol](arena []node[S], rootIdx int) Table {
	type poolEntry struct {
		left, right int32 // negative = final leaf marker; non-negative = pool index, remapped below
	}

	pool := []poolEntry{{}}
	nodeToPool := map[int]int{rootIdx: 0}
	orderedRefs := []int{}

	queue := []int{rootIdx}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curPool := nodeToPool[cur]

		for side := range 2 {
			var child int
			if side == 0 {
				child = arena[cur].left
			} else {
				child = arena[cur].right
			}

			var slot int32
			if arena[child].isLeaf {
				slot = -1 - toI32(arena[child].symbol)
			} else {
				childPool := len(pool)
				pool = append(pool, poolEntry{})
				nodeToPool[child] = childPool
				orderedRefs = append(orderedRefs, childPool)
				queue = append(queue, child)
				slot = int32(childPool)
			}
			if side == 0 {
				pool[curPool].left = slot
			} else {
				pool[curPool].right = slot
			}
		}
	}
	orderedRefs = append(orderedRefs, 0) // root's pool index, always 0, appended last

	poolToFinal := make(map[int32]int32, len(orderedRefs))
	for finalIdx, poolIdx := range orderedRefs {
		poolToFinal[int32(poolIdx)] = int32(finalIdx)
	}

	pairs := make(Table, len(orderedRefs))
	for finalIdx, poolIdx := range orderedRefs {
		e := pool[poolIdx]
		pairs[finalIdx] = Pair{Left: remap(e.left, poolToFinal), Right: remap(e.right, poolToFinal)}
	}
	return pairs
}

func remap(v int32, poolToFinal map[int32]int32) int32 {
	if v < 0 {
		return v
	}
	return poolToFinal[v]
}

type pqItem struct {
	nodeIdx int
	freq    int
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].freq < pq[j].freq }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)         { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
