package pipeline

import "sync"

// StationStatus tags the terminal outcome of one station's processing. The
// chain is download, parse, persist; the first failing step names the
// status and later steps never run.
type StationStatus string

const (
	StatusSuccess          StationStatus = "SUCCESS"
	StatusFileNotFound     StationStatus = "FILE_NOT_FOUND"
	StatusParseError       StationStatus = "PARSE_ERROR"
	StatusStationSaveError StationStatus = "DB_STATION_SAVE_ERROR"
	StatusRecordSaveError  StationStatus = "DB_RECORD_SAVE_ERROR"
	StatusSamplesSaveError StationStatus = "DB_SAMPLES_SAVE_ERROR"
)

// StationResult is the outcome of one station within one event.
type StationResult struct {
	Code    string
	Status  StationStatus
	Samples int
	Err     error
}

// EventResult is the outcome of one event's record acquisition. Err is set
// only for orchestration failures (timeout, panic); an event whose stations
// all miss files completes with Saved=false and no error.
type EventResult struct {
	EventID  string
	Saved    bool
	Stations []StationResult
	Err      error
}

// RunResult summarizes one acquisition run.
type RunResult struct {
	RunID            string
	Status           string
	EventsProcessed  int
	EventsSaved      int
	EventsFailed     int
	RecordsSaved     int
	SamplesStored    int
	StationsByStatus map[StationStatus]int
	Errors           []string // first maxRunErrors only
}

const maxRunErrors = 10

// runMetrics accumulates results from concurrently finishing event tasks.
// All access goes through the mutex; one instance exists per run.
type runMetrics struct {
	mu               sync.Mutex
	eventsProcessed  int
	eventsSaved      int
	eventsFailed     int
	recordsSaved     int
	samplesStored    int
	stationsByStatus map[StationStatus]int
	errors           []string
}

func newRunMetrics() *runMetrics {
	return &runMetrics{stationsByStatus: make(map[StationStatus]int)}
}

func (m *runMetrics) recordEvent(res EventResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eventsProcessed++
	if res.Err != nil {
		m.eventsFailed++
		if len(m.errors) < maxRunErrors {
			m.errors = append(m.errors, res.EventID+": "+res.Err.Error())
		}
		return
	}
	if res.Saved {
		m.eventsSaved++
	}
	for _, st := range res.Stations {
		m.stationsByStatus[st.Status]++
		if st.Status == StatusSuccess {
			m.recordsSaved++
			m.samplesStored += st.Samples
		}
	}
}

func (m *runMetrics) result(runID, status string) RunResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	byStatus := make(map[StationStatus]int, len(m.stationsByStatus))
	for k, v := range m.stationsByStatus {
		byStatus[k] = v
	}
	return RunResult{
		RunID:            runID,
		Status:           status,
		EventsProcessed:  m.eventsProcessed,
		EventsSaved:      m.eventsSaved,
		EventsFailed:     m.eventsFailed,
		RecordsSaved:     m.recordsSaved,
		SamplesStored:    m.samplesStored,
		StationsByStatus: byStatus,
		Errors:           append([]string(nil), m.errors...),
	}
}
