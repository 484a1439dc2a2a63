package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/epopbench/epop-eval/pkg/epop"
)

var (
	// System metrics
	SystemMemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "system_memory_bytes",
		Help: "Current system memory usage",
	})

	SystemGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "system_goroutines",
		Help: "Number of goroutines",
	})

	// Corpus metrics
	CorpusDocuments = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "annotation_documents",
			Help: "Documents per loaded corpus",
		},
		[]string{"corpus"},
	)

	AnnotationLayerSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "annotation_layer_size",
			Help: "Annotations per corpus and layer",
		},
		[]string{"corpus", "layer"},
	)

	// Persistence metrics
	ReportsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reports_stored_total",
		Help: "Corpus reports written to the report store",
	})

	DocumentsExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neo4j_documents_exported_total",
		Help: "Documents exported to Neo4j",
	})
)

// UpdateSystemMetrics updates system-level metrics
func UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	SystemMemoryUsage.Set(float64(m.Alloc))
	SystemGoroutines.Set(float64(runtime.NumGoroutine()))
}

// ObserveCorpus records the size of a loaded corpus under a role label
// such as "gold" or "predicted".
func ObserveCorpus(role string, c *epop.Corpus) {
	CorpusDocuments.WithLabelValues(role).Set(float64(c.Len()))

	var entities, relations, chains int
	for _, doc := range c.Documents() {
		entities += len(doc.Entities)
		relations += len(doc.Relations)
		chains += len(doc.Chains)
	}
	AnnotationLayerSize.WithLabelValues(role, "entities").Set(float64(entities))
	AnnotationLayerSize.WithLabelValues(role, "relations").Set(float64(relations))
	AnnotationLayerSize.WithLabelValues(role, "chains").Set(float64(chains))
}
