// spanfan runs and inspects a dual-sink span pipeline.
//
// Every span is written to a local Chrome trace file. Spans that are not
// marked opentelemetry.skip=true are also forwarded to an OpenTelemetry
// collector.
//
// Usage:
//
//	# Validate a configuration file
//	spanfan config check --config spanfan.yaml
//
//	# Emit sample spans to ./trace.json and to the configured collector
//	spanfan demo --config spanfan.yaml --chrome ./trace.json
//
//	# Summarize a trace, re-rendering when it changes
//	spanfan inspect ./trace.json --watch
//
//	# Forward a recorded trace to the collector
//	spanfan replay ./trace.json --config spanfan.yaml
//
//	# Measure pipeline throughput
//	spanfan bench --chrome /tmp/bench.json --spans 100000
package main

func main() {
	Execute()
}
