package lifecycle

import (
	"reflect"

	"shellhost/internal/settings"
)

// delta is the minimal change set between the current snapshot and a freshly
// fetched settings document.
type delta struct {
	added   []settings.ShellSettings
	changed []settings.ShellSettings
	removed []settings.ShellSettings

	// rootChanged reports that the root configuration section differs.
	// Root values feed into every shell's effective options, so surviving
	// shells are rebuilt even when their own record is unchanged.
	rootChanged bool
}

// empty reports whether applying the delta would be a no-op.
func (d delta) empty() bool {
	return len(d.added) == 0 && len(d.changed) == 0 && len(d.removed) == 0
}

// computeDelta diffs the fetched document against the current snapshot.
// Shell matching is case-insensitive; a shell whose record is deep-equal to
// the current one is neither changed nor touched.
func computeDelta(current *settings.Snapshot, next settings.Document) delta {
	d := delta{
		rootChanged: !reflect.DeepEqual(current.Document().Configuration, next.Configuration),
	}

	seen := make(map[string]bool, len(next.Shells))
	for _, sh := range next.Shells {
		key := sh.ID.Key()
		if seen[key] {
			// ParseDocument rejects duplicate ids; a programmatic document
			// gets first-wins here.
			continue
		}
		seen[key] = true

		cur, exists := current.Get(sh.ID)
		switch {
		case !exists:
			d.added = append(d.added, sh)
		case !cur.Equal(sh) || d.rootChanged:
			d.changed = append(d.changed, sh)
		}
	}

	for _, cur := range current.All() {
		if !seen[cur.ID.Key()] {
			d.removed = append(d.removed, cur)
		}
	}
	return d
}
