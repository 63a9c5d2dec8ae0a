package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldOwner        = "owner"
	FieldEntryID      = "entry_id"
	FieldObligationID = "obligation_id"
	FieldSaleID       = "sale_id"
	FieldPeriod       = "period"
	FieldDueDate      = "due_date"
	FieldAmount       = "amount"
	FieldKind         = "kind"
	FieldOperation    = "operation"
	FieldError        = "error"
	FieldCount        = "count"
	FieldReceiptURL   = "receipt_url"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentLedger     = "ledger"
	ComponentObligation = "obligation"
	ComponentSale       = "sale"
	ComponentSummary    = "summary"
	ComponentNotify     = "notify"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentReceipts   = "receipts"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpMarkPaid = "mark_paid"
	OpSync     = "sync"
	OpRefresh  = "refresh"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
