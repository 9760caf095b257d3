package model

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

// 图投影节点类型。投影由主库派生，可随时重建，绝不作为第二事实来源。
const (
	NodeCompany          = "Company"
	NodeTender           = "Tender"
	NodePerson           = "Person"
	NodeAddress          = "Address"
	NodeSubmissionOrigin = "SubmissionOrigin"
	NodeBankAccount      = "BankAccount"
	NodeNotary           = "Notary"
	NodeEscrowAccount    = "EscrowAccount"
)

// 图投影边类型
const (
	EdgeBidOn            = "BID_ON"             // Company→Tender：amount/bidDate/ip/bidId
	EdgeSubmittedFrom    = "SUBMITTED_FROM"     // Company→SubmissionOrigin
	EdgeOwns             = "OWNS"               // Person→Company：designation/sharePercent
	EdgeHasBankAccount   = "HAS_BANK_ACCOUNT"   // Company→BankAccount
	EdgeUsesNotary       = "USES_NOTARY"        // Company→Notary
	EdgeHasEscrowAccount = "HAS_ESCROW_ACCOUNT" // Company→EscrowAccount
	EdgeSameAddress      = "SAME_ADDRESS"       // Company→Company（无序对，按字典序定向）
	EdgeSameDirector     = "SAME_DIRECTOR"      // Company→Company（同上）
)

// GraphNode 图投影节点。(kind, key) 唯一，重复 upsert 覆盖属性而非累积。
type GraphNode struct {
	ID    uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Kind  string         `gorm:"column:kind;type:varchar(32);not null;uniqueIndex:uk_node_kind_key;comment:节点类型"`
	Key   string         `gorm:"column:key;type:varchar(256);not null;uniqueIndex:uk_node_kind_key;comment:节点业务键"`
	Label string         `gorm:"column:label;type:varchar(512);comment:展示名称"`
	Props datatypes.JSON `gorm:"column:props;type:jsonb;comment:节点属性"`
}

// GraphEdge 图投影边。(kind, from, to) 唯一，重复 upsert 覆盖属性。
type GraphEdge struct {
	ID       uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Kind     string         `gorm:"column:kind;type:varchar(32);not null;index;uniqueIndex:uk_edge;comment:边类型"`
	FromKind string         `gorm:"column:from_kind;type:varchar(32);not null;uniqueIndex:uk_edge;comment:起点类型"`
	FromKey  string         `gorm:"column:from_key;type:varchar(256);not null;uniqueIndex:uk_edge;comment:起点业务键"`
	ToKind   string         `gorm:"column:to_kind;type:varchar(32);not null;uniqueIndex:uk_edge;comment:终点类型"`
	ToKey    string         `gorm:"column:to_key;type:varchar(256);not null;uniqueIndex:uk_edge;comment:终点业务键"`
	Props    datatypes.JSON `gorm:"column:props;type:jsonb;comment:边属性"`
}

func (GraphNode) TableName() string { return "graph_nodes" }
func (GraphEdge) TableName() string { return "graph_edges" }

// CompanyNodeProps Company 节点属性
type CompanyNodeProps struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Director     string `json:"director"`
	AddressNorm  string `json:"address_norm"`
	DirectorNorm string `json:"director_norm"`
}

// TenderNodeProps Tender 节点属性
type TenderNodeProps struct {
	DeptName string `json:"dept_name"`
	Location string `json:"location"`
	Pincode  string `json:"pincode"`
	Status   string `json:"status"`
}

// BidOnEdgeProps BID_ON 边属性
type BidOnEdgeProps struct {
	BidID   string  `json:"bid_id"`
	Amount  float64 `json:"amount"`
	BidDate string  `json:"bid_date"`
	IP      string  `json:"ip"`
}

// OwnsEdgeProps OWNS 边属性
type OwnsEdgeProps struct {
	Designation  string  `json:"designation"`
	SharePercent float64 `json:"share_percent"`
}

// PairEdgeProps SAME_ADDRESS / SAME_DIRECTOR 边属性（记录共享的原始值）
type PairEdgeProps struct {
	Value string `json:"value"`
}

// EncodeProps 属性序列化（节点/边属性均为受控结构体，序列化不会失败）
func EncodeProps(v any) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

// DecodeProps 属性反序列化
func DecodeProps(j datatypes.JSON, out any) error {
	if len(j) == 0 {
		return nil
	}
	return json.Unmarshal(j, out)
}

// NormalizeSignal 共谋信号字段归一化：去首尾空白、压缩连续空白、小写。
// 仅做精确匹配前的规整，不做任何模糊匹配。
func NormalizeSignal(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.TrimSpace(s)), " "))
}
