package types

// Cluster groups retrieved neighbors judged mutually similar above the
// router's threshold. Built fresh per query, never persisted.
type Cluster struct {
	ID             string
	MemberIDs      []string // at least one member
	CentroidID     string   // highest-fused-score member
	MeanSimilarity float64  // mean pairwise similarity across members
}

// Size returns the number of members
func (c *Cluster) Size() int {
	return len(c.MemberIDs)
}

// Singleton reports whether the cluster has exactly one member
func (c *Cluster) Singleton() bool {
	return len(c.MemberIDs) == 1
}

// Validate checks cluster invariants
func (c *Cluster) Validate() error {
	if len(c.MemberIDs) == 0 {
		return ErrEmptyCluster
	}
	if c.CentroidID == "" {
		return ErrMissingCentroid
	}
	for _, id := range c.MemberIDs {
		if id == c.CentroidID {
			return nil
		}
	}
	return ErrCentroidNotMember
}

// RuleDraft is a candidate detection rule derived from one cluster.
// Every pattern occurs in at least two distinct cluster members unless the
// cluster is a singleton, in which case LowConfidence is set.
type RuleDraft struct {
	ClusterID     string
	Patterns      []string
	Confidence    float64 // coverage fraction x mean intra-cluster similarity
	Family        string  // best-effort target family label
	LowConfidence bool
}
