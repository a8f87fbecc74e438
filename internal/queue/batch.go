package queue

import "github.com/cadre-run/cadre/internal/core"

// SelectNonOverlappingBatch walks ready in order, greedily accepting a
// session whose file set is disjoint from the batch's claimed-files set,
// skipping otherwise, and stopping once maxBatchSize sessions are
// accepted. Ordering is stable: ready's order is never reshuffled.
func SelectNonOverlappingBatch(ready []*core.Session, maxBatchSize int) []*core.Session {
	if maxBatchSize <= 0 {
		return nil
	}

	claimed := make(map[string]bool)
	var batch []*core.Session

	for _, s := range ready {
		if len(batch) >= maxBatchSize {
			break
		}
		if overlaps(claimed, s.Files) {
			continue
		}
		for _, f := range s.Files {
			claimed[f] = true
		}
		batch = append(batch, s)
	}
	return batch
}

func overlaps(claimed map[string]bool, files []string) bool {
	for _, f := range files {
		if claimed[f] {
			return true
		}
	}
	return false
}

// Collision describes two sessions that both claim the same file.
type Collision struct {
	File     string
	SessionA core.SessionID
	SessionB core.SessionID
}

// DetectBatchCollisions emits one Collision per unordered pair of sessions
// that share a file — three owners of one file produce three descriptors.
func DetectBatchCollisions(sessions []*core.Session) []Collision {
	owners := make(map[string][]core.SessionID)
	for _, s := range sessions {
		for _, f := range s.Files {
			owners[f] = append(owners[f], s.ID)
		}
	}

	var collisions []Collision
	for file, ids := range owners {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				collisions = append(collisions, Collision{File: file, SessionA: ids[i], SessionB: ids[j]})
			}
		}
	}
	return collisions
}
