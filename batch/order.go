package batch

import "sort"

// Mode selects the criterion used to sequence successful artifacts before
// assembly.
type Mode int

const (
	// ByName orders lexicographically on the identity string, case-sensitive.
	ByName Mode = iota
	// ByModTime orders by source modification time, most recent first.
	ByModTime
	// BySize orders by source size, largest first.
	BySize
	// ExplicitList follows an externally supplied sequence of names.
	ExplicitList
)

// Key is the ordering policy applied to a frozen batch report. Ordering is
// pure and deterministic: the same report and key always yield the same
// sequence.
type Key struct {
	Mode Mode
	// Explicit holds the requested sequence for ExplicitList mode. Entries
	// may be identities or base names. Entries that match no successful
	// outcome are ignored; successful identities absent from the list are
	// appended afterward in ByName order, so ordering never silently drops
	// content.
	Explicit []string
}

// Order returns the identities of all successful outcomes in final assembly
// order. The result contains exactly the successful identities, without
// duplicates or omissions.
func (k Key) Order(r *Report) []string {
	ids := make([]string, 0, r.SuccessCount())
	for _, o := range r.Successes() {
		ids = append(ids, o.Identity)
	}

	switch k.Mode {
	case ByModTime:
		sort.SliceStable(ids, func(i, j int) bool {
			ti, _ := r.Task(ids[i])
			tj, _ := r.Task(ids[j])
			if !ti.ModTime.Equal(tj.ModTime) {
				return ti.ModTime.After(tj.ModTime)
			}
			return ids[i] < ids[j]
		})
	case BySize:
		sort.SliceStable(ids, func(i, j int) bool {
			ti, _ := r.Task(ids[i])
			tj, _ := r.Task(ids[j])
			if ti.Size != tj.Size {
				return ti.Size > tj.Size
			}
			return ids[i] < ids[j]
		})
	case ExplicitList:
		return k.explicitOrder(r, ids)
	default:
		sort.Strings(ids)
	}
	return ids
}

func (k Key) explicitOrder(r *Report, ids []string) []string {
	byIdentity := make(map[string]string, len(ids))
	byName := make(map[string]string, len(ids))
	for _, id := range ids {
		byIdentity[id] = id
		if t, ok := r.Task(id); ok {
			// First success wins on duplicate base names.
			if _, taken := byName[t.Name]; !taken {
				byName[t.Name] = id
			}
		}
	}

	used := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, entry := range k.Explicit {
		id, ok := byIdentity[entry]
		if !ok {
			id, ok = byName[entry]
		}
		if !ok || used[id] {
			continue
		}
		used[id] = true
		out = append(out, id)
	}

	rest := make([]string, 0, len(ids)-len(out))
	for _, id := range ids {
		if !used[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
