package event

import (
	"log/slog"
	"sync"
)

// ClustererConfig is the source-trust table used for survivor election.
// It is passed in at construction time; there is no package-level default
// table on purpose.
type ClustererConfig struct {
	// TrustScores maps a source tag to its numeric trust weight.
	TrustScores map[string]float64
	// DefaultScore is used for sources missing from TrustScores.
	DefaultScore float64
}

// Clusterer groups a same-day event set into duplicate clusters and elects
// one survivor per cluster.
//
// Clustering is single-pass star clustering, not transitive closure: each
// record is only compared against the first unclaimed record encountered in
// iteration order. This is order-dependent and can miss pairs whose best
// match was already claimed, but it keeps survivor selection identical to
// the heuristic the trust scores were tuned against.
type Clusterer struct {
	similarity *Similarity
	cfg        ClustererConfig

	mu     sync.Mutex
	warned map[string]bool
}

func NewClusterer(similarity *Similarity, cfg ClustererConfig) *Clusterer {
	return &Clusterer{
		similarity: similarity,
		cfg:        cfg,
		warned:     make(map[string]bool),
	}
}

// Cluster must only be given records belonging to a single calendar day;
// clustering across days would merge legitimately repeating events (a weekly
// meetup) into one. It returns the surviving record of every cluster, in
// first-seen order. Dropped members stay in storage untouched.
func (c *Clusterer) Cluster(records []*Record) []*Record {
	for _, r := range records {
		r.IsDuplicated = false
		r.DuplicateReason = DuplicateNone
	}

	survivors := make([]*Record, 0, len(records))

	for i, seed := range records {
		if seed.IsDuplicated {
			continue
		}

		cluster := []*Record{seed}
		for _, other := range records[i+1:] {
			if other.IsDuplicated {
				continue
			}
			ok, reason := c.similarity.AreDuplicates(seed, other)
			if !ok {
				continue
			}
			seed.IsDuplicated = true
			seed.DuplicateReason = reason
			other.IsDuplicated = true
			other.DuplicateReason = reason
			cluster = append(cluster, other)
		}

		survivors = append(survivors, c.electSurvivor(cluster))
	}

	return survivors
}

// electSurvivor picks the member with the highest trust score; ties favor
// the first-seen member.
func (c *Clusterer) electSurvivor(cluster []*Record) *Record {
	survivor := cluster[0]
	survivor.Score = c.scoreFor(survivor.Source)

	for _, candidate := range cluster[1:] {
		candidate.Score = c.scoreFor(candidate.Source)
		if candidate.Score > survivor.Score {
			survivor = candidate
		}
	}

	return survivor
}

func (c *Clusterer) scoreFor(source string) float64 {
	if score, ok := c.cfg.TrustScores[source]; ok {
		return score
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.warned[source] {
		c.warned[source] = true
		slog.Warn("No trust score configured for source, using default",
			"source", source, "default", c.cfg.DefaultScore)
	}
	return c.cfg.DefaultScore
}
