package payafter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/LerianStudio/lib-payscore/payscore/log"
)

const ordersPath = "/v3/payscore/payafter-orders"

const (
	// StartOnAccept starts the service when the user confirms the order.
	StartOnAccept = "OnAccept"
	// DefaultCancelReason is sent when an order is completed with FinishCancel.
	DefaultCancelReason = "用户取消订单"
	// SyncOrderPaid is the only sync type the gateway accepts.
	SyncOrderPaid = "Order_Paid"
)

// FinishType tells the gateway how the user used the service.
type FinishType int

const (
	// FinishCancel means the service was not used and the order is cancelled.
	FinishCancel FinishType = 1
	// FinishComplete means the service was used and the order is settled.
	FinishComplete FinishType = 2
)

// ErrInvalidRequest is returned before any call is made when required
// arguments are missing or inconsistent.
var ErrInvalidRequest = errors.New("payafter: invalid request")

// Requester is the signing transport. *client.Client satisfies it.
type Requester interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body any, out any) error
}

// Fee is one billable item of an order.
type Fee struct {
	Name        string `json:"fee_name" validate:"required,max=20"`
	Amount      int64  `json:"fee_amount" validate:"gte=0"`
	Description string `json:"fee_desc,omitempty" validate:"max=30"`
	Count       int    `json:"fee_count,omitempty" validate:"gte=0"`
}

// Order is the gateway's view of a pay-after order.
type Order struct {
	AppID                string         `json:"appid"`
	MchID                string         `json:"mchid"`
	ServiceID            string         `json:"service_id"`
	OutOrderNo           string         `json:"out_order_no"`
	OrderID              string         `json:"order_id"`
	OpenID               string         `json:"openid"`
	State                string         `json:"state"`
	StateDescription     string         `json:"state_description"`
	TotalAmount          int64          `json:"total_amount"`
	ServiceIntroduction  string         `json:"service_introduction"`
	Fees                 []Fee          `json:"fees"`
	RiskAmount           int64          `json:"risk_amount"`
	NeedCollection       bool           `json:"need_collection"`
	Package              string         `json:"package"`
	FinishTicket         string         `json:"finish_ticket"`
	ServiceStartTime     string         `json:"service_start_time"`
	ServiceEndTime       string         `json:"service_end_time"`
	ServiceStartLocation string         `json:"service_start_location"`
	ServiceEndLocation   string         `json:"service_end_location"`
	Collection           map[string]any `json:"collection,omitempty"`
}

// TotalAmountYuan returns TotalAmount formatted in yuan.
func (o *Order) TotalAmountYuan() string { return Yuan(o.TotalAmount) }

// RiskAmountYuan returns RiskAmount formatted in yuan.
func (o *Order) RiskAmountYuan() string { return Yuan(o.RiskAmount) }

// ServiceState reports whether a user can use the service.
type ServiceState struct {
	AppID       string `json:"appid"`
	MchID       string `json:"mchid"`
	ServiceID   string `json:"service_id"`
	OpenID      string `json:"openid"`
	UseService  bool   `json:"use_service"`
	ServiceDesc string `json:"service_desc,omitempty"`
}

// CreateRequest describes a new order. Extra is merged into the body last and
// may override any generated field.
type CreateRequest struct {
	OpenID               string `validate:"required"`
	OutOrderNo           string `validate:"required,max=32"`
	ServiceStartTime     string
	ServiceEndTime       string
	ServiceStartLocation string `validate:"max=50"`
	ServiceEndLocation   string `validate:"max=50"`
	ServiceIntroduction  string `validate:"max=20"`
	Fees                 []Fee  `validate:"dive"`
	RiskAmount           int64  `validate:"gte=0"`
	NeedUserConfirm      bool
	Extra                map[string]any
}

// CompleteRequest settles or cancels an order.
type CompleteRequest struct {
	OutOrderNo             string     `validate:"required,max=32"`
	FinishTicket           string     `validate:"required"`
	FinishType             FinishType `validate:"omitempty,oneof=1 2"`
	TotalAmount            int64      `validate:"gte=0"`
	ProfitSharing          bool
	CancelReason           string `validate:"max=50"`
	Fees                   []Fee  `validate:"dive"`
	RealServiceStartTime   string
	RealServiceEndTime     string
	RealServiceEndLocation string
}

// ModifyRequest changes the amount of an order awaiting settlement.
type ModifyRequest struct {
	OutOrderNo  string `validate:"required,max=32"`
	Fees        []Fee  `validate:"dive"`
	TotalAmount int64  `validate:"gte=0"`
	Reason      string `validate:"required,max=50"`
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Service) { s.logger = log.OrNop(l) }
}

// Service issues pay-after order calls for one app and service id.
type Service struct {
	requester Requester
	appID     string
	serviceID string
	logger    log.Logger
}

// New returns a Service. appID and serviceID are added to every call.
func New(requester Requester, appID, serviceID string, opts ...Option) (*Service, error) {
	if requester == nil {
		return nil, fmt.Errorf("%w: nil requester", ErrInvalidRequest)
	}

	if appID == "" || serviceID == "" {
		return nil, fmt.Errorf("%w: app id and service id are required", ErrInvalidRequest)
	}

	s := &Service{
		requester: requester,
		appID:     appID,
		serviceID: serviceID,
		logger:    &log.NopLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// UserServiceState asks whether openid may use the service.
func (s *Service) UserServiceState(ctx context.Context, openid string) (*ServiceState, error) {
	if openid == "" {
		return nil, fmt.Errorf("%w: openid is required", ErrInvalidRequest)
	}

	query := url.Values{}
	query.Set("service_id", s.serviceID)
	query.Set("appid", s.appID)
	query.Set("openid", openid)

	var state ServiceState
	if err := s.requester.Get(ctx, "/v3/payscore/user-service-state", query, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// Create places a new order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	start := req.ServiceStartTime
	if start == "" {
		start = StartOnAccept
	}

	body := s.body(map[string]any{
		"openid":                 req.OpenID,
		"out_order_no":           req.OutOrderNo,
		"service_start_time":     start,
		"service_start_location": req.ServiceStartLocation,
		"service_end_location":   req.ServiceEndLocation,
		"service_introduction":   req.ServiceIntroduction,
		"fees":                   fees(req.Fees),
		"risk_amount":            req.RiskAmount,
		"need_user_confirm":      req.NeedUserConfirm,
	})

	if req.ServiceEndTime != "" {
		body["service_end_time"] = req.ServiceEndTime
	}

	for k, v := range req.Extra {
		body[k] = v
	}

	var order Order
	if err := s.requester.Post(ctx, ordersPath, body, &order); err != nil {
		return nil, err
	}

	s.logger.Log(ctx, log.LevelInfo, "payafter order created",
		log.OutOrderNo(req.OutOrderNo), log.String("state", order.State))

	return &order, nil
}

// Query looks an order up by exactly one of outOrderNo or queryID.
func (s *Service) Query(ctx context.Context, outOrderNo, queryID string) (*Order, error) {
	if (outOrderNo == "") == (queryID == "") {
		return nil, fmt.Errorf("%w: exactly one of out_order_no and query_id is required", ErrInvalidRequest)
	}

	query := url.Values{}
	query.Set("service_id", s.serviceID)
	query.Set("appid", s.appID)

	if outOrderNo != "" {
		query.Set("out_order_no", outOrderNo)
	} else {
		query.Set("query_id", queryID)
	}

	var order Order
	if err := s.requester.Get(ctx, ordersPath, query, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

// Complete settles the order, or cancels it when FinishType is FinishCancel.
// A zero FinishType means FinishComplete.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (*Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	finishType := req.FinishType
	if finishType == 0 {
		finishType = FinishComplete
	}

	body := s.body(map[string]any{
		"finish_ticket":  req.FinishTicket,
		"finish_type":    int(finishType),
		"total_amount":   req.TotalAmount,
		"profit_sharing": req.ProfitSharing,
	})

	switch finishType {
	case FinishCancel:
		if req.TotalAmount != 0 {
			return nil, fmt.Errorf("%w: total_amount must be 0 when cancelling", ErrInvalidRequest)
		}

		reason := req.CancelReason
		if reason == "" {
			reason = DefaultCancelReason
		}

		body["cancel_reason"] = reason
	case FinishComplete:
		if len(req.Fees) > 0 {
			body["fees"] = fees(req.Fees)
		}

		setIf(body, "real_service_start_time", req.RealServiceStartTime)
		setIf(body, "real_service_end_time", req.RealServiceEndTime)
		setIf(body, "real_service_end_location", req.RealServiceEndLocation)
	}

	var order Order
	if err := s.requester.Post(ctx, orderPath(req.OutOrderNo, "complete"), body, &order); err != nil {
		return nil, err
	}

	s.logger.Log(ctx, log.LevelInfo, "payafter order completed",
		log.OutOrderNo(req.OutOrderNo), log.Int("finish_type", int(finishType)))

	return &order, nil
}

// Cancel cancels an order that has not been completed.
func (s *Service) Cancel(ctx context.Context, outOrderNo, reason string) (*Order, error) {
	if outOrderNo == "" || reason == "" {
		return nil, fmt.Errorf("%w: out_order_no and reason are required", ErrInvalidRequest)
	}

	var order Order
	if err := s.requester.Post(ctx, orderPath(outOrderNo, "cancel"), s.body(map[string]any{"reason": reason}), &order); err != nil {
		return nil, err
	}

	s.logger.Log(ctx, log.LevelInfo, "payafter order cancelled", log.OutOrderNo(outOrderNo))

	return &order, nil
}

// Modify changes the fees and total of an order before payment.
func (s *Service) Modify(ctx context.Context, req ModifyRequest) (*Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	body := s.body(map[string]any{
		"fees":         fees(req.Fees),
		"total_amount": req.TotalAmount,
		"reason":       req.Reason,
	})

	var order Order
	if err := s.requester.Post(ctx, orderPath(req.OutOrderNo, "modify"), body, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

// Sync reports that the user paid the order outside the gateway. paidTime is
// an RFC 3339 timestamp.
func (s *Service) Sync(ctx context.Context, outOrderNo, paidTime string) (*Order, error) {
	if outOrderNo == "" || paidTime == "" {
		return nil, fmt.Errorf("%w: out_order_no and paid time are required", ErrInvalidRequest)
	}

	body := s.body(map[string]any{
		"type":   SyncOrderPaid,
		"detail": map[string]any{"paid_time": paidTime},
	})

	var order Order
	if err := s.requester.Post(ctx, orderPath(outOrderNo, "sync"), body, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (s *Service) body(fields map[string]any) map[string]any {
	fields["appid"] = s.appID
	fields["service_id"] = s.serviceID

	return fields
}

func orderPath(outOrderNo, action string) string {
	return strings.Join([]string{ordersPath, url.PathEscape(outOrderNo), action}, "/")
}

func setIf(body map[string]any, key, value string) {
	if value != "" {
		body[key] = value
	}
}

// fees converts to the generic tree so canonicalization sees plain values.
func fees(in []Fee) []any {
	out := make([]any, 0, len(in))

	for _, f := range in {
		item := map[string]any{"fee_name": f.Name, "fee_amount": f.Amount}
		setIf(item, "fee_desc", f.Description)

		if f.Count > 0 {
			item["fee_count"] = f.Count
		}

		out = append(out, item)
	}

	return out
}
