package domain

import "time"

// TransactionRecord is one sale extracted from a listings page.
// TransactionID is content-derived (see package identity), never sequence-assigned.
type TransactionRecord struct {
	TransactionID  string  `json:"transactionId" bson:"transaction_id"`
	ApartName      string  `json:"apartName" bson:"apart_name"`
	Address        string  `json:"address" bson:"address"`
	TradeDate      string  `json:"tradeDate" bson:"trade_date"` // YYYY-MM-DD
	Size           float64 `json:"size" bson:"size"`            // m²
	Floor          int     `json:"floor" bson:"floor"`
	TradeAmount    int64   `json:"tradeAmount" bson:"trade_amount"` // KRW
	MaxTradeAmount int64   `json:"maxTradeAmount" bson:"max_trade_amount"`
	IsNewRecord    bool    `json:"isNewRecord" bson:"is_new_record"`
}

// ApartDetail is the result of an apartment-detail crawl.
type ApartDetail struct {
	ApartName             string              `json:"apartName"`
	Address               string              `json:"address"`
	HouseholdsCount       int                 `json:"householdsCount"`
	Parking               float64             `json:"parking"`               // spaces per household
	FloorAreaRatio        float64             `json:"floorAreaRatio"`        // 용적률, percent
	BuildingCoverageRatio float64             `json:"buildingCoverageRatio"` // 건폐율, percent
	TradeItems            []TransactionRecord `json:"tradeItems"`
}

// NewTransactions is the result of a new-transactions crawl for an area.
type NewTransactions struct {
	Count            int                 `json:"count"`
	List             []TransactionRecord `json:"list"`
	TotalPages       int                 `json:"totalPages"`
	ProcessingTimeMs int64               `json:"processingTimeMs"`
}

// TransactionArchive is the per-region, per-day snapshot of all visible transaction ids.
type TransactionArchive struct {
	ID             string    `json:"id" bson:"_id"` // {date}_{regionCode}
	RegionCode     string    `json:"regionCode" bson:"region_code"`
	Date           string    `json:"date" bson:"date"` // YYYYMMDD, KST
	TransactionIDs []string  `json:"transactionIds" bson:"transaction_ids"`
	SavedAt        time.Time `json:"savedAt" bson:"saved_at"`
}

// ArchiveID builds the document id of a region's archive for a day.
func ArchiveID(date, regionCode string) string {
	return date + "_" + regionCode
}

// DiffResult lists the transaction ids that appeared since the previous snapshot.
type DiffResult struct {
	Count          int      `json:"count"`
	TransactionIDs []string `json:"transactionIds"`
}
