package telemetry

// Pipeline metrics. All default to noop so packages can increment them
// whether or not telemetry was initialized.
var (
	FilesParsed      Counter = NoopStat{}
	FileErrors       Counter = NoopStat{}
	PagesDecoded     Counter = NoopStat{}
	RecordsDecoded   Counter = NoopStat{}
	RecordsFiltered  Counter = NoopStat{}
	RecordsBroadcast Counter = NoopStat{}

	SinkWriteErrors CounterVec = noopCounterVec{}
)

func initializeMetrics() {
	FilesParsed = NewCounter("files_parsed_total", "Capture files fully decoded")
	FileErrors = NewCounter("file_errors_total", "Capture files that failed to decode")
	PagesDecoded = NewCounter("pages_decoded_total", "Pages framed and decoded")
	RecordsDecoded = NewCounter("records_decoded_total", "Records decoded from all pages")
	RecordsFiltered = NewCounter("records_filtered_total", "Decoded records rejected by the filter")
	RecordsBroadcast = NewCounter("records_broadcast_total", "Records delivered to the broadcast hub")

	SinkWriteErrors = NewCounterVec("sink_write_errors_total", "Record writes skipped due to sink errors", []string{"sink"})
}
