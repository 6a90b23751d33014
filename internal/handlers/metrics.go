package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	predictions *prometheus.CounterVec
	inference   prometheus.Histogram
	cells       *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hemacount",
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		inference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hemacount",
			Name:      "inference_seconds",
			Help:      "Time spent in the detector per image.",
			Buckets:   prometheus.DefBuckets,
		}),
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hemacount",
			Name:      "cells_detected_total",
			Help:      "Detected cells by class.",
		}, []string{"class"}),
	}
	reg.MustRegister(m.predictions, m.inference, m.cells)
	return m
}
