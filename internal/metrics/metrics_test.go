/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := cv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func getGaugeVecValue(gv *prometheus.GaugeVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := gv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func getHistogramCount(hv *prometheus.HistogramVec, labels ...string) uint64 {
	m := &dto.Metric{}
	observer := hv.WithLabelValues(labels...)
	if c, ok := observer.(prometheus.Metric); ok {
		if err := c.Write(m); err != nil {
			return 0
		}
		return m.GetHistogram().GetSampleCount()
	}
	return 0
}

func TestRecordWebhook(t *testing.T) {
	before := getCounterValue(WebhookRequestsTotal, "replied")
	beforeCount := getHistogramCount(WebhookDurationSeconds, "replied")

	RecordWebhook("replied", 3*time.Millisecond)

	if got := getCounterValue(WebhookRequestsTotal, "replied"); got != before+1 {
		t.Errorf("WebhookRequestsTotal = %f, want %f", got, before+1)
	}
	if got := getHistogramCount(WebhookDurationSeconds, "replied"); got != beforeCount+1 {
		t.Errorf("histogram sample count = %d, want %d", got, beforeCount+1)
	}
}

func TestRecordValidationFailure(t *testing.T) {
	before := getCounterValue(ValidationFailuresTotal, "bot_message_detected")
	RecordValidationFailure("bot_message_detected")
	RecordValidationFailure("bot_message_detected")

	if got := getCounterValue(ValidationFailuresTotal, "bot_message_detected"); got != before+2 {
		t.Errorf("ValidationFailuresTotal = %f, want %f", got, before+2)
	}
}

func TestRecordCommand(t *testing.T) {
	before := getCounterValue(CommandsTotal, "balance", "error")
	RecordCommand("balance", "error")

	if got := getCounterValue(CommandsTotal, "balance", "error"); got != before+1 {
		t.Errorf("CommandsTotal = %f, want %f", got, before+1)
	}
}

func TestRecordSweep(t *testing.T) {
	before := getCounterValue(SweptEntriesTotal, "replay")
	RecordSweep("replay", 4, 11)

	if got := getCounterValue(SweptEntriesTotal, "replay"); got != before+4 {
		t.Errorf("SweptEntriesTotal = %f, want %f", got, before+4)
	}
	if got := getGaugeVecValue(StoreEntries, "replay"); got != 11 {
		t.Errorf("StoreEntries = %f, want 11", got)
	}
}

func TestRegistryGathersGatewayMetrics(t *testing.T) {
	RecordValidationFailure("update_id_not_found")

	families, err := Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "botgate_validation_failures_total" {
			found = true
		}
		if !strings.HasPrefix(f.GetName(), "botgate_") && !strings.HasPrefix(f.GetName(), "go_") && !strings.HasPrefix(f.GetName(), "process_") {
			t.Errorf("unexpected metric family %q", f.GetName())
		}
	}
	if !found {
		t.Error("botgate_validation_failures_total not gathered")
	}
}
