package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldUser      = "user"
	FieldMode      = "mode"
	FieldYear      = "year"
	FieldMonth     = "month"
	FieldAmount    = "amount"
	FieldTxType    = "tx_operation"
	FieldTimestamp = "tx_time"
	FieldCount     = "count"
	FieldBackend   = "backend"
	FieldRef       = "ref"
)

// Components defines standard component names
const (
	ComponentApp            = "app"
	ComponentCache          = "cache"
	ComponentBudget         = "budget"
	ComponentAnomaly        = "anomaly"
	ComponentRecommendation = "recommendation"
	ComponentStorage        = "storage"
	ComponentLedger         = "ledger"
	ComponentAMQP           = "amqp"
	ComponentWorker         = "worker"
	ComponentSheets         = "sheets"
	ComponentBackend        = "backend"
	ComponentCLI            = "cli"
)

// Operations defines standard operation names
const (
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpRecord    = "record"
	OpClassify  = "classify"
	OpCalculate = "calculate"
	OpDetect    = "detect"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// With adds an arbitrary field
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithUser adds the account username
func (f LogFields) WithUser(username string) LogFields {
	f[FieldUser] = username
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMode adds the budget mode
func (f LogFields) WithMode(mode string) LogFields {
	f[FieldMode] = mode
	return f
}

// WithMonth adds year and month fields
func (f LogFields) WithMonth(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithTransaction adds the identifying fields of a ledger row
func (f LogFields) WithTransaction(operation string, amount float64, timestamp string) LogFields {
	f[FieldTxType] = operation
	f[FieldAmount] = amount
	f[FieldTimestamp] = timestamp
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
