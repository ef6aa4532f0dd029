/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import "github.com/prometheus/client_golang/prometheus"

var (
	MessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "parser_messages_total",
		Help:      "Total number of IPFIX messages parsed",
	})
	ParseErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "parser_errors_total",
		Help:      "Total number of messages whose header or body could not be read or whose header failed validation",
	})
	MessageDurationMicroseconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "collector",
		Name:      "parser_message_duration_microseconds",
		Help:      "Duration of parsing a single IPFIX message in microseconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	SetsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "parser_sets_total",
		Help:      "Total number of sets parsed per kind",
	}, []string{"kind"})
	RecordsDispatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_records_dispatched_total",
		Help:      "Total number of data records dispatched to a placement sink",
	}, []string{"observation_domain"})
	RecordsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_records_dropped_total",
		Help:      "Total number of data sets dropped, with all their records, due to unresolved templates, missing placements, or compile or format errors",
	}, []string{"reason"})
	DecodePlansCompiledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_plans_compiled_total",
		Help:      "Total number of decode plans compiled for newly matched (wire, placement) pairs",
	})
	TemplatesLearnedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "registry_templates_learned_total",
		Help:      "Total number of wire templates learned by the registry, including supersedences",
	}, []string{"kind"})
)
