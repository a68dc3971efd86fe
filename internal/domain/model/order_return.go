package model

import "time"

type ReturnType string

const (
	ReturnTypeReturn   ReturnType = "RETURN"
	ReturnTypeRefund   ReturnType = "REFUND"
	ReturnTypeExchange ReturnType = "EXCHANGE"
)

func (t ReturnType) Valid() bool {
	return t == ReturnTypeReturn || t == ReturnTypeRefund || t == ReturnTypeExchange
}

// 返品理由は閉じた列挙
type ReturnReason string

const (
	ReturnReasonDefective      ReturnReason = "DEFECTIVE"
	ReturnReasonWrongItem      ReturnReason = "WRONG_ITEM"
	ReturnReasonNotAsDescribed ReturnReason = "NOT_AS_DESCRIBED"
	ReturnReasonSizeIssue      ReturnReason = "SIZE_ISSUE"
	ReturnReasonChangedMind    ReturnReason = "CHANGED_MIND"
	ReturnReasonOther          ReturnReason = "OTHER"
)

func (r ReturnReason) Valid() bool {
	switch r {
	case ReturnReasonDefective, ReturnReasonWrongItem, ReturnReasonNotAsDescribed,
		ReturnReasonSizeIssue, ReturnReasonChangedMind, ReturnReasonOther:
		return true
	}
	return false
}

type ReturnStatus string

const (
	ReturnStatusPending    ReturnStatus = "PENDING"
	ReturnStatusApproved   ReturnStatus = "APPROVED"
	ReturnStatusRejected   ReturnStatus = "REJECTED"
	ReturnStatusProcessing ReturnStatus = "PROCESSING"
	ReturnStatusCompleted  ReturnStatus = "COMPLETED"
	ReturnStatusCancelled  ReturnStatus = "CANCELLED"
)

func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnStatusPending, ReturnStatusApproved, ReturnStatusRejected,
		ReturnStatusProcessing, ReturnStatusCompleted, ReturnStatusCancelled:
		return true
	}
	return false
}

// 返品の遷移表
var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusPending:    {ReturnStatusApproved, ReturnStatusRejected, ReturnStatusCancelled},
	ReturnStatusApproved:   {ReturnStatusProcessing},
	ReturnStatusProcessing: {ReturnStatusCompleted},
}

func (s ReturnStatus) CanTransitionTo(next ReturnStatus) bool {
	for _, t := range returnTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// REJECTED/CANCELLED以外は「その注文の有効な返品」として数える。
// 注文1件につき有効な返品は同時に1つまで。
func (s ReturnStatus) Active() bool {
	return s != ReturnStatusRejected && s != ReturnStatusCancelled
}

// 配達後の返品・返金申請。金銭の移動自体はここでは起きない。
type OrderReturn struct {
	ID         int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64        `gorm:"not null;index" json:"order_id"`
	UserID     int64        `gorm:"not null;index" json:"user_id"`
	ReturnCode string       `gorm:"type:varchar(32);not null;uniqueIndex" json:"return_code"`
	ReturnType ReturnType   `gorm:"type:varchar(20);not null" json:"return_type"`
	Reason     ReturnReason `gorm:"type:varchar(30);not null" json:"reason"`

	Description string       `gorm:"type:text" json:"description"`
	Status      ReturnStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	RefundAmount int64  `gorm:"not null" json:"refund_amount"`
	AdminNotes   string `gorm:"type:text" json:"admin_notes,omitempty"`

	ApprovedAt  *time.Time `json:"approved_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
