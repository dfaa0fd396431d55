// Package metrics Prometheus-метрики генерации, мешей и взаимодействий.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор коллекторов процесса. Нулевой указатель допустим:
// все методы на nil ничего не делают.
type Metrics struct {
	phaseDuration *prometheus.HistogramVec
	meshesBuilt   *prometheus.CounterVec
	meshFaces     *prometheus.CounterVec
	interactions  *prometheus.CounterVec
	saves         *prometheus.CounterVec
	dirtyChunks   prometheus.Gauge
	waterBlocks   prometheus.Gauge
	trees         prometheus.Gauge
}

// NewMetrics создаёт коллекторы и регистрирует их в reg.
// reg == nil оставляет метрики незарегистрированными (удобно в тестах).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blockverse",
			Name:      "generation_phase_seconds",
			Help:      "Длительность фаз генерации мира.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
		meshesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockverse",
			Name:      "meshes_built_total",
			Help:      "Построенные меши чанков по типу.",
		}, []string{"part"}),
		meshFaces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockverse",
			Name:      "mesh_faces_total",
			Help:      "Число граней, выведенных в меши.",
		}, []string{"part"}),
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockverse",
			Name:      "block_interactions_total",
			Help:      "Удары и постройки блоков по результату.",
		}, []string{"op", "result"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockverse",
			Name:      "saves_total",
			Help:      "Сохранения и загрузки мира.",
		}, []string{"op", "result"}),
		dirtyChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockverse",
			Name:      "dirty_chunks",
			Help:      "Чанки, ожидающие перестройки меша.",
		}),
		waterBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockverse",
			Name:      "water_blocks",
			Help:      "Блоки воды, добавленные последней генерацией.",
		}),
		trees: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockverse",
			Name:      "trees",
			Help:      "Деревья, посаженные последней генерацией.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.phaseDuration, m.meshesBuilt, m.meshFaces, m.interactions,
			m.saves, m.dirtyChunks, m.waterBlocks, m.trees)
	}
	return m
}

// ObservePhase записывает длительность фазы генерации
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// MeshBuilt учитывает построенный меш
func (m *Metrics) MeshBuilt(part string, faces int) {
	if m == nil {
		return
	}
	m.meshesBuilt.WithLabelValues(part).Inc()
	m.meshFaces.WithLabelValues(part).Add(float64(faces))
}

// Interaction учитывает удар или постройку
func (m *Metrics) Interaction(op, result string) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(op, result).Inc()
}

// Persistence учитывает сохранение или загрузку
func (m *Metrics) Persistence(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.saves.WithLabelValues(op, result).Inc()
}

// SetDirtyChunks текущее число грязных чанков
func (m *Metrics) SetDirtyChunks(n int) {
	if m == nil {
		return
	}
	m.dirtyChunks.Set(float64(n))
}

// SetWorldStats итоги последней генерации
func (m *Metrics) SetWorldStats(water, trees int) {
	if m == nil {
		return
	}
	m.waterBlocks.Set(float64(water))
	m.trees.Set(float64(trees))
}
