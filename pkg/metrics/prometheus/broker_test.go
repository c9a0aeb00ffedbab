package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistersAllCollectorsWithoutPanicking(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetActiveClients(4)
	m.IncSpansCreated()
	m.IncInstancesCreated()
	m.IncFDEvictions()
	m.SetFDPoolSize(2)
	m.SetCommandQueueDepth(1)
	m.ObserveCSVWrite("events", 256, 2*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one registered metric family after recording")
	}
}
