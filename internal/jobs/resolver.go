package jobs

import "github.com/rs/zerolog"

// Resolver expands assistant job references into cached records.
type Resolver struct {
	cache      *Cache
	log        zerolog.Logger
	OnDangling func(number string)
}

func NewResolver(cache *Cache, log zerolog.Logger) *Resolver {
	return &Resolver{cache: cache, log: log}
}

// Resolve returns the records for refs in input order. When the first ref is
// already a record the refs are the legacy full-record shape and pass through.
// Numbers with no cached record are dropped.
func (r *Resolver) Resolve(refs []Ref) []Record {
	if len(refs) == 0 {
		return nil
	}
	if refs[0].IsRecord() {
		out := make([]Record, 0, len(refs))
		for _, ref := range refs {
			if ref.Record != nil {
				out = append(out, *ref.Record)
			}
		}
		return out
	}

	out := make([]Record, 0, len(refs))
	for _, ref := range refs {
		number := ref.Number
		if ref.Record != nil {
			number = ref.Record.Number
		}
		rec, err := r.cache.Lookup(number)
		if err != nil {
			r.log.Debug().Str("job", number).Msg("dropping unresolved job reference")
			if r.OnDangling != nil {
				r.OnDangling(number)
			}
			continue
		}
		out = append(out, rec)
	}
	return out
}
