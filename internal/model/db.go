package model

import (
	"fmt"
	"time"
)

// TenderStatus 招标生命周期状态
const (
	TenderStatusPendingApproval = "pending_approval" // 待审批（创建后的初始状态）
	TenderStatusActive          = "active"           // 审批通过，可投标
	TenderStatusRejected        = "rejected"         // 被驳回，可修改后重新提交
	TenderStatusClosed          = "closed"           // 已截止（终态）
	TenderStatusCompleted       = "completed"        // 已完成（终态）
	TenderStatusCancelled       = "cancelled"        // 已取消（终态）
)

// BidStatus 投标状态
const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
	BidStatusWinner   = "winner"
)

// Company 投标公司（地址与董事为共谋信号字段，跨公司相等即有意义）
type Company struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"-"`
	CompanyID string    `gorm:"column:company_id;type:varchar(64);uniqueIndex;not null;comment:公司业务ID" json:"companyId"`
	Name      string    `gorm:"column:name;type:varchar(256);comment:公司名称" json:"name"`
	Address   string    `gorm:"column:address;type:varchar(512);comment:注册地址" json:"address"`
	Director  string    `gorm:"column:director;type:varchar(128);comment:董事姓名" json:"director"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;comment:创建时间" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime;comment:更新时间" json:"updatedAt"`
}

// Person 自然人及其持股记录（一人可持股多家公司）
type Person struct {
	ID         uint64            `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"-"`
	PersonID   string            `gorm:"column:person_id;type:varchar(64);uniqueIndex;not null;comment:人员业务ID" json:"personId"`
	PersonName string            `gorm:"column:person_name;type:varchar(128);comment:姓名" json:"personName"`
	Companies  []PersonOwnership `gorm:"foreignKey:PersonID;references:PersonID" json:"companies"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime;comment:创建时间" json:"createdAt"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime;comment:更新时间" json:"updatedAt"`
}

// PersonOwnership 持股记录（Person 与 Company 的多对多关系，保留原始顺序）
type PersonOwnership struct {
	ID           uint64  `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"-"`
	PersonID     string  `gorm:"column:person_id;type:varchar(64);index;not null;comment:关联人员业务ID" json:"personId"`
	CompanyID    string  `gorm:"column:company_id;type:varchar(64);index;not null;comment:关联公司业务ID" json:"companyId"`
	Designation  string  `gorm:"column:designation;type:varchar(64);comment:职务" json:"designation"`
	SharePercent float64 `gorm:"column:share_percent;type:numeric(5,2);comment:持股比例" json:"sharePercent"`
	Position     int     `gorm:"column:position;type:int;default:0;comment:原始顺序" json:"position"`
}

// FinancialTie 金融关联指纹（均为不透明等值令牌，只比较相等，不还原原值）
type FinancialTie struct {
	ID             uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"-"`
	EntityID       string    `gorm:"column:entity_id;type:varchar(64);uniqueIndex;not null;comment:关联实体业务ID" json:"entityId"`
	EntityType     string    `gorm:"column:entity_type;type:varchar(16);default:company;comment:实体类型：company/person" json:"entityType"`
	BankAccHash    string    `gorm:"column:bank_acc_hash;type:varchar(128);index;comment:银行账户指纹" json:"bankAccHash"`
	TaxIDHash      string    `gorm:"column:tax_id_hash;type:varchar(128);comment:税号指纹" json:"taxIdHash"`
	NotaryID       string    `gorm:"column:notary_id;type:varchar(64);index;comment:公证人ID" json:"notaryId"`
	EMDAccountHash string    `gorm:"column:emd_account_hash;type:varchar(128);index;comment:保证金账户指纹" json:"emdAccountHash"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime;comment:创建时间" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime;comment:更新时间" json:"updatedAt"`
}

// Tender 招标项目。TenderID 形如 {dept}-{year}-{seq}，一经分配不可变更；
// (dept, year, seq) 在同一部门年度内严格递增且不复用。
type Tender struct {
	ID              uint64     `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"-"`
	TenderID        string     `gorm:"column:tender_id;type:varchar(64);uniqueIndex;not null;comment:招标业务ID" json:"tenderId"`
	DeptName        string     `gorm:"column:dept_name;type:varchar(64);not null;comment:发布部门" json:"deptName"`
	Year            int        `gorm:"column:year;type:int;not null;comment:年度" json:"year"`
	TenderNum       int        `gorm:"column:tender_num;type:int;not null;comment:部门年度内序号" json:"tenderNum"`
	Title           string     `gorm:"column:title;type:varchar(256);comment:标题" json:"title"`
	Location        string     `gorm:"column:location;type:varchar(256);comment:项目地点" json:"location"`
	Pincode         string     `gorm:"column:pincode;type:varchar(16);comment:邮政编码" json:"pincode"`
	EstValueInCr    float64    `gorm:"column:est_value_in_cr;type:numeric(18,4);comment:预估金额（千万卢比）" json:"estValueInCr"`
	PublishDate     time.Time  `gorm:"column:publish_date;type:timestamp;comment:发布日期" json:"publishDate"`
	ClosingDate     *time.Time `gorm:"column:closing_date;type:timestamp;comment:截止日期" json:"closingDate"`
	Status          string     `gorm:"column:status;type:varchar(32);default:pending_approval;comment:生命周期状态" json:"status"`
	RejectionReason *string    `gorm:"column:rejection_reason;type:varchar(512);comment:驳回原因" json:"rejectionReason"`
	ReviewedBy      *string    `gorm:"column:reviewed_by;type:varchar(64);comment:审批人" json:"reviewedBy"`
	ReviewedAt      *time.Time `gorm:"column:reviewed_at;type:timestamp;comment:审批时间" json:"reviewedAt"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime;comment:创建时间" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime;comment:更新时间" json:"updatedAt"`
}

// Bid 投标记录。同一 (tender, company) 至多一条；仅在招标 active 期间可创建。
type Bid struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"-"`
	BidID     string    `gorm:"column:bid_id;type:varchar(64);uniqueIndex;not null;comment:投标业务ID" json:"bidId"`
	TenderID  string    `gorm:"column:tender_id;type:varchar(64);index;not null;uniqueIndex:uk_tender_company;comment:关联招标ID" json:"tenderId"`
	CompanyID string    `gorm:"column:company_id;type:varchar(64);index;not null;uniqueIndex:uk_tender_company;comment:关联公司ID" json:"companyId"`
	BidAmount float64   `gorm:"column:bid_amount;type:numeric(18,4);not null;comment:投标金额" json:"bidAmount"`
	BidDate   time.Time `gorm:"column:bid_date;type:timestamp;comment:投标时间" json:"bidDate"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(64);index;comment:提交来源指纹（可为空）" json:"ipAddress"`
	Status    string    `gorm:"column:status;type:varchar(16);default:pending;comment:投标状态" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;comment:创建时间" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime;comment:更新时间" json:"updatedAt"`
}

// TenderClause 招标条款。RestrictivenessScore 为空表示尚未经外部NLP服务评分。
type TenderClause struct {
	ID                   uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"-"`
	TenderID             string    `gorm:"column:tender_id;type:varchar(64);index;not null;uniqueIndex:uk_tender_clause;comment:关联招标ID" json:"tenderId"`
	ClauseID             string    `gorm:"column:clause_id;type:varchar(64);not null;uniqueIndex:uk_tender_clause;comment:条款业务ID" json:"clauseId"`
	SectionType          string    `gorm:"column:section_type;type:varchar(64);default:Technical Eligibility;comment:条款章节" json:"sectionType"`
	RequirementText      string    `gorm:"column:requirement_text;type:text;comment:条款正文" json:"requirementText"`
	IsMandatory          bool      `gorm:"column:is_mandatory;type:boolean;default:true;comment:是否强制条款" json:"isMandatory"`
	RestrictivenessScore *float64  `gorm:"column:restrictiveness_score;type:numeric(5,4);comment:限制性分数[0,1]，空=未评分" json:"restrictivenessScore"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime;comment:创建时间" json:"createdAt"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime;comment:更新时间" json:"updatedAt"`
}

func (Company) TableName() string         { return "companies" }
func (Person) TableName() string          { return "persons" }
func (PersonOwnership) TableName() string { return "person_ownerships" }
func (FinancialTie) TableName() string    { return "financial_ties" }
func (Tender) TableName() string          { return "tenders" }
func (Bid) TableName() string             { return "bids" }
func (TenderClause) TableName() string    { return "tender_clauses" }

// FormatTenderID 生成招标业务ID：{dept}-{year}-{seq}，序号补零到3位
func FormatTenderID(deptName string, year, tenderNum int) string {
	return fmt.Sprintf("%s-%d-%03d", deptName, year, tenderNum)
}

// TerminalTenderStatus 终态判断（closed/completed/cancelled 不再流转）
func TerminalTenderStatus(status string) bool {
	switch status {
	case TenderStatusClosed, TenderStatusCompleted, TenderStatusCancelled:
		return true
	}
	return false
}

// ValidBidStatus 投标状态枚举校验
func ValidBidStatus(status string) bool {
	switch status {
	case BidStatusPending, BidStatusAccepted, BidStatusRejected, BidStatusWinner:
		return true
	}
	return false
}
