package log

// Field names shared by every component.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldAttempt     = "attempt"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldClientCode  = "client_code"
	FieldInstallment = "installment_number"
	FieldAmountCents = "amount_cents"
	FieldDriftCents  = "drift_cents"
	FieldCount       = "count"
	FieldVersion     = "version"
	FieldReason      = "reason"
	FieldMessageID   = "message_id"
)

const (
	ComponentApp            = "app"
	ComponentHTTP           = "http"
	ComponentClients        = "clients"
	ComponentLedger         = "ledger"
	ComponentReconciliation = "reconciliation"
	ComponentStorage        = "storage"
	ComponentAMQP           = "amqp"
	ComponentWorker         = "worker"
	ComponentSheets         = "sheets"
	ComponentSnapshot       = "snapshot"
	ComponentReport         = "report"
	ComponentCache          = "cache"
	ComponentTrace          = "trace"
	ComponentBackend        = "backend"
)

const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSearch   = "search"
	OpAppend   = "append"
	OpSplit    = "split"
	OpExport   = "export"
	OpValidate = "validate"
	OpParse    = "parse"
	OpRender   = "render"
	OpRetry    = "retry"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeContention    = "contention_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields builds slog attribute lists.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithInstallment adds the ledger coordinates of an installment. A zero
// number is omitted.
func (f LogFields) WithInstallment(clientCode string, number int, amountCents int64) LogFields {
	f[FieldClientCode] = clientCode
	if number > 0 {
		f[FieldInstallment] = number
	}
	f[FieldAmountCents] = amountCents
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog's key/value form.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
