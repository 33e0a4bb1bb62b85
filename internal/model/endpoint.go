package model

// MutationSignals records the textual evidence that a handler body mutates
// persistent state or ingests user input. The invariant MutationEvidence ⇔
// (DBWrite ∨ PaymentWrite ∨ BodyRead) is enforced by MarkDBWrite,
// MarkPaymentWrite and MarkBodyRead, never by callers setting the booleans
// directly.
type MutationSignals struct {
	MutationEvidence bool     `json:"mutationEvidence"`
	DBWrite          bool     `json:"dbWrite"`
	PaymentWrite     bool     `json:"paymentWrite"`
	BodyRead         bool     `json:"bodyRead"`
	Details          []string `json:"details,omitempty"`
}

// MarkDBWrite records a database write and its human-readable detail.
func (m *MutationSignals) MarkDBWrite(detail string) {
	m.DBWrite = true
	m.MutationEvidence = true
	m.addDetail(detail)
}

// MarkPaymentWrite records a payment-provider write and its detail.
func (m *MutationSignals) MarkPaymentWrite(detail string) {
	m.PaymentWrite = true
	m.MutationEvidence = true
	m.addDetail(detail)
}

// MarkBodyRead records a request-body read and its detail.
func (m *MutationSignals) MarkBodyRead(detail string) {
	m.BodyRead = true
	m.MutationEvidence = true
	m.addDetail(detail)
}

func (m *MutationSignals) addDetail(detail string) {
	for _, d := range m.Details {
		if d == detail {
			return
		}
	}
	m.Details = append(m.Details, detail)
}

// EndpointKind tags the Endpoint sum type's active variant.
type EndpointKind string

const (
	EndpointRouteHandler  EndpointKind = "route"
	EndpointServerAction  EndpointKind = "action"
	EndpointRPCProcedure  EndpointKind = "rpc"
)

// PublicIntent is a parsed `<tool>:public-intent reason="..."` directive.
type PublicIntent struct {
	Reason string `json:"reason"`
	Line   int    `json:"line"`
}

// MalformedPublicIntent records a public-intent directive with no usable
// reason; it is treated as absent for suppression purposes but still
// triggers PUBLIC-INTENT-MISSING-REASON.
type MalformedPublicIntent struct {
	Line    int    `json:"line"`
	RawText string `json:"rawText"`
}

// RouteHandler is a `route.{ext}` file under the application directory.
type RouteHandler struct {
	File                  string                 `json:"file"`
	Methods               []string               `json:"methods,omitempty"`
	Pathname              string                 `json:"pathname,omitempty"`
	IsAPI                 bool                   `json:"isApi"`
	Signals               MutationSignals        `json:"signals"`
	PublicIntent          *PublicIntent          `json:"publicIntent,omitempty"`
	MalformedPublicIntent *MalformedPublicIntent `json:"malformedPublicIntent,omitempty"`
	Protection            *ProtectionSummary     `json:"protection,omitempty"`
}

// ServerAction is a function under the application directory marked with a
// server-directive ("use server") at file or function level.
type ServerAction struct {
	File    string           `json:"file"`
	Name    string           `json:"name,omitempty"`
	Signals MutationSignals  `json:"signals"`
}

// ProcedureType classifies an RPC procedure's declared access level.
type ProcedureType string

const (
	ProcedureTypePublic    ProcedureType = "public"
	ProcedureTypeProtected ProcedureType = "protected"
	ProcedureTypeUnknown   ProcedureType = "unknown"
)

// ProcedureKind classifies an RPC procedure's operation shape.
type ProcedureKind string

const (
	ProcedureKindMutation     ProcedureKind = "mutation"
	ProcedureKindQuery        ProcedureKind = "query"
	ProcedureKindSubscription ProcedureKind = "subscription"
	ProcedureKindUnknown      ProcedureKind = "unknown"
)

// RPCProcedure is one entry resolved from the typed-RPC router tree.
type RPCProcedure struct {
	Name          string           `json:"name"` // dotted, e.g. "user.create"
	File          string           `json:"file"`
	Line          int              `json:"line"`
	ProcedureType ProcedureType    `json:"procedureType"`
	ProcedureKind ProcedureKind    `json:"procedureKind"`
	Signals       MutationSignals  `json:"signals"`
}

// Endpoint is a tagged union over the three endpoint variants. Exactly one
// of Route/Action/Procedure is non-nil, selected by Kind.
type Endpoint struct {
	Kind      EndpointKind  `json:"kind"`
	Route     *RouteHandler `json:"route,omitempty"`
	Action    *ServerAction `json:"action,omitempty"`
	Procedure *RPCProcedure `json:"procedure,omitempty"`
}

// File returns the source file backing this endpoint, regardless of variant.
func (e *Endpoint) File() string {
	switch e.Kind {
	case EndpointRouteHandler:
		return e.Route.File
	case EndpointServerAction:
		return e.Action.File
	case EndpointRPCProcedure:
		return e.Procedure.File
	default:
		return ""
	}
}

// Signals returns the mutation signals backing this endpoint, regardless of
// variant.
func (e *Endpoint) Signals() MutationSignals {
	switch e.Kind {
	case EndpointRouteHandler:
		return e.Route.Signals
	case EndpointServerAction:
		return e.Action.Signals
	case EndpointRPCProcedure:
		return e.Procedure.Signals
	default:
		return MutationSignals{}
	}
}

// NewRouteEndpoint wraps a RouteHandler as an Endpoint.
func NewRouteEndpoint(r *RouteHandler) Endpoint {
	return Endpoint{Kind: EndpointRouteHandler, Route: r}
}

// NewActionEndpoint wraps a ServerAction as an Endpoint.
func NewActionEndpoint(a *ServerAction) Endpoint {
	return Endpoint{Kind: EndpointServerAction, Action: a}
}

// NewProcedureEndpoint wraps an RPCProcedure as an Endpoint.
func NewProcedureEndpoint(p *RPCProcedure) Endpoint {
	return Endpoint{Kind: EndpointRPCProcedure, Procedure: p}
}
