package web

import (
	"testing"
	"time"

	"github.com/appaltosmart/webclient/core/extraction"
)

func TestExtractionRegistry_evictsTerminalWatches(t *testing.T) {
	r := newExtractionRegistry()
	r.retention = 10 * time.Millisecond

	r.put("running", watchState{ExtractionID: "e1", Status: extraction.StatusProcessing})
	r.put("done", watchState{ExtractionID: "e2", Status: extraction.StatusCompleted})

	if _, ok := r.get("done"); !ok {
		t.Fatal("finished watch must stay readable right after completion")
	}

	waitFor(t, func() bool {
		_, ok := r.get("done")
		return !ok
	}, "finished watch never evicted")

	// a watch still in flight keeps its slot
	if _, ok := r.get("running"); !ok {
		t.Error("running watch must not be evicted")
	}

	// once it fails it is evicted like any other terminal state
	r.put("running", watchState{ExtractionID: "e1", Status: extraction.StatusFailed, Error: "boom"})
	waitFor(t, func() bool {
		_, ok := r.get("running")
		return !ok
	}, "failed watch never evicted")
}
