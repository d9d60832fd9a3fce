package checker

// Category groups error kinds the way the installed monitoring groups its
// event ranges. Business logic branches on kinds, never on the numeric codes.
type Category string

const (
	CategoryConfig      Category = "config"
	CategoryEnvironment Category = "environment"
	CategoryValidation  Category = "validation"
	CategoryTransport   Category = "transport"
	CategoryPersistence Category = "persistence"
	CategoryGeneral     Category = "general"
)

// ErrorKind is the closed set of failure conditions a check run can report.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindConfigMissingKey
	KindConfigInvalidValue
	KindLogsDirMissing
	KindEventLogMissing
	KindUpdateLogMissing
	KindLogRead
	KindValidationFailed
	KindNotifyTransport
	KindCheckpointDir
	KindCheckpointWrite
	KindUnexpected
)

// Informational wire events. Emitted to the audit sink alongside the error
// codes below; they share the same numbering scheme.
const (
	WireEventSuccess  = 1
	WireEventNoUpdate = 2
)

// WireCode translates a kind into the numeric event id consumed by the audit
// sink and external tooling. Codes are grouped in blocks of 100 per category;
// this method is the only place the numbers live.
func (k ErrorKind) WireCode() int {
	switch k {
	case KindConfigMissingKey:
		return 101
	case KindConfigInvalidValue:
		return 102
	case KindLogsDirMissing:
		return 201
	case KindEventLogMissing:
		return 202
	case KindUpdateLogMissing:
		return 203
	case KindLogRead:
		return 204
	case KindValidationFailed:
		return 301
	case KindNotifyTransport:
		return 401
	case KindCheckpointDir:
		return 501
	case KindCheckpointWrite:
		return 502
	case KindUnexpected:
		return 901
	default:
		return 0
	}
}

func (k ErrorKind) Category() Category {
	switch k {
	case KindConfigMissingKey, KindConfigInvalidValue:
		return CategoryConfig
	case KindLogsDirMissing, KindEventLogMissing, KindUpdateLogMissing, KindLogRead:
		return CategoryEnvironment
	case KindValidationFailed:
		return CategoryValidation
	case KindNotifyTransport:
		return CategoryTransport
	case KindCheckpointDir, KindCheckpointWrite:
		return CategoryPersistence
	default:
		return CategoryGeneral
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConfigMissingKey:
		return "config-missing-key"
	case KindConfigInvalidValue:
		return "config-invalid-value"
	case KindLogsDirMissing:
		return "logs-dir-missing"
	case KindEventLogMissing:
		return "event-log-missing"
	case KindUpdateLogMissing:
		return "update-log-missing"
	case KindLogRead:
		return "log-read"
	case KindValidationFailed:
		return "update-validation-failed"
	case KindNotifyTransport:
		return "notification-transport"
	case KindCheckpointDir:
		return "checkpoint-dir"
	case KindCheckpointWrite:
		return "checkpoint-write"
	default:
		return "unexpected"
	}
}
