package graph

import (
	"context"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"coldcall-insights-go/internal/types"
)

// allocateSessionIDQuery advances a dedicated counter node in a single
// statement. The counter is seeded from the highest session suffix already in
// the graph, so it stays correct after restores or manual inserts, and the
// single MERGE+SET keeps concurrent processes from handing out the same id.
const allocateSessionIDQuery = `
MERGE (c:SessionCounter {name: 'call_transcript'})
WITH c
OPTIONAL MATCH (cs:CallSession)
WITH c, max(toInteger(split(cs.session_id, '_')[-1])) AS max_existing
SET c.value = CASE
  WHEN coalesce(max_existing, 0) >= coalesce(c.value, 0) THEN coalesce(max_existing, 0) + 1
  ELSE coalesce(c.value, 0) + 1
END
RETURN c.value AS next_id
`

// NextSessionID hands out the next numeric session suffix. The in-process
// mutex covers concurrent pipeline requests inside one service instance; the
// counter node covers concurrent instances. On any query failure it falls
// back to 1 with a warning rather than blocking ingestion.
func (s *Store) NextSessionID(ctx context.Context) int {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	runner := s.runner(ctx, neo4j.AccessModeWrite)
	defer runner.close(ctx)

	rows, err := runner.run(ctx, allocateSessionIDQuery, nil)
	if err != nil {
		s.log.WithError(err).Warn("Could not allocate next session id, defaulting to 1")
		return 1
	}
	if len(rows) == 0 {
		return 1
	}
	return rowInt(rows[0], "next_id")
}

// sessionSuffix extracts the numeric suffix of a session id such as
// "call_transcript_12". Malformed ids report ok=false and sort first.
func sessionSuffix(sessionID string) (int, bool) {
	rest, found := strings.CutPrefix(sessionID, types.SessionIDPrefix)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
