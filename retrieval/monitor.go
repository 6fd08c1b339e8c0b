package retrieval

import (
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/vector"
)

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps during a search.
type Monitor interface {
	Start(query string)
	AfterVectorSearch(hits []vector.Hit)
	AfterGraphMatch(entities []core.GraphEntityResult)
	Finish(results []core.RetrievalResult)
}

// noopMonitor is a no-op implementation of Monitor.
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                              {}
func (n *noopMonitor) AfterVectorSearch(_ []vector.Hit)            {}
func (n *noopMonitor) AfterGraphMatch(_ []core.GraphEntityResult)  {}
func (n *noopMonitor) Finish(_ []core.RetrievalResult)             {}
