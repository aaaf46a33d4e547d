package logging

import (
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/eval"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/gate"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/train"
)

// Trigger types recorded in provenance_log.
const (
	TriggerTrain    = "train"
	TriggerActivate = "activate"
	TriggerImport   = "import"
)

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	ID          int64
	VersionID   string
	RunID       string
	TriggerType string // "train" | "activate" | "import"
	RecordJSON  string
	Decision    string // "commit" | "reject" | "saved"
	Reason      string
	CreatedAt   time.Time
}

// #endregion provenance-entry

// #region train-record
// TrainRecord captures everything needed to replay and audit one training
// run. Serialized as JSON into provenance_log.record_json.
type TrainRecord struct {
	RunID string `json:"run_id"`

	// Exact schedule and seed the table was trained with
	Config train.Config `json:"config"`

	// Training metrics; the learning curve is kept out to bound row size
	Metrics train.Metrics `json:"metrics"`

	// Evaluation of the candidate, the random baseline and the table it replaced
	Greedy    eval.EvalResult  `json:"greedy"`
	Random    eval.EvalResult  `json:"random"`
	Incumbent *eval.EvalResult `json:"incumbent,omitempty"`

	// Thresholds active at decision time
	Thresholds TrainRecordThresholds `json:"thresholds"`

	// Gate output
	GateAction    string  `json:"gate_action"`
	GateSoftScore float64 `json:"gate_soft_score"`
	GateVetoed    bool    `json:"gate_vetoed"`
	GateReason    string  `json:"gate_reason"`
}

// TrainRecordThresholds captures the eval/gate config active at decision time.
type TrainRecordThresholds struct {
	Eval eval.EvalConfig `json:"eval"`
	Gate gate.GateConfig `json:"gate"`
}

// #endregion train-record
