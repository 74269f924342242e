package models

// Metric names extracted from the statements of a financial report.
const (
	MetricRevenue          = "revenue"
	MetricNetProfit        = "net_profit"
	MetricTotalAssets      = "total_assets"
	MetricTotalLiabilities = "total_liabilities"
)

// MetricNames lists the fixed metric vocabulary in display order.
var MetricNames = []string{
	MetricRevenue,
	MetricNetProfit,
	MetricTotalAssets,
	MetricTotalLiabilities,
}

// Chunk is a bounded piece of a document's extracted page text
type Chunk struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	PageNumber int       `json:"page_number,omitempty"` // 1-based, 0 when unknown
	ChunkIndex int       `json:"chunk_index"`           // position within the page's split
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"` // nil when embedding failed
}

// HasEmbedding reports whether the chunk can take part in ranking.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Metric is one reported figure for a fiscal year
type Metric struct {
	Year  int     `json:"year"`
	Name  string  `json:"metric_name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// MetricsByYear maps a fiscal year to its metric name -> value table.
type MetricsByYear map[int]map[string]float64

// Scope selects whose metrics are read: a document, or in legacy mode a company.
type Scope struct {
	DocumentID int64 `json:"document_id,omitempty"`
	CompanyID  int64 `json:"company_id,omitempty"`
}

// IsDocument reports whether the scope targets an uploaded document.
func (s Scope) IsDocument() bool {
	return s.DocumentID > 0
}

// Valid reports whether exactly one of the two ids is set.
func (s Scope) Valid() bool {
	return (s.DocumentID > 0) != (s.CompanyID > 0)
}

// Document is an uploaded financial report
type Document struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	StoragePath string `json:"storage_path"`
	CompanyName string `json:"company_name,omitempty"`
	FiscalYear  string `json:"fiscal_year,omitempty"`
}

// Chart kinds a plan may request.
const (
	ChartLine = "line"
	ChartBar  = "bar"
	ChartPie  = "pie"
	ChartNone = "none"
)

// Axis kinds.
const (
	AxisYear   = "year"
	AxisMetric = "metric"
)

// ChartPlan is the validated visualisation intent for one question
type ChartPlan struct {
	WantsChart  bool     `json:"wants_chart"`
	ChartType   string   `json:"chart_type"`
	XAxis       string   `json:"x_axis"`
	Metrics     []string `json:"metrics"`
	Aggregation string   `json:"aggregation"`
}

// NoChartPlan is the conservative plan used whenever planning fails.
func NoChartPlan() ChartPlan {
	return ChartPlan{
		WantsChart:  false,
		ChartType:   ChartNone,
		XAxis:       AxisYear,
		Metrics:     []string{},
		Aggregation: "none",
	}
}

// ChartSeries is one labelled line, bar group or pie slice.
type ChartSeries struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// ChartData is a renderable chart. Values are aligned with Years,
// except for pie charts which carry a single value per series.
type ChartData struct {
	ChartType string        `json:"chart_type"`
	Years     []int         `json:"years"`
	Series    []ChartSeries `json:"series"`
}

// QueryRequest is one question asked against a document or company
type QueryRequest struct {
	Scope    Scope  `json:"scope"`
	Role     string `json:"role"`
	Question string `json:"question"`
}

// Response represents the answer returned to the caller
type Response struct {
	Answer    string     `json:"answer"`
	ChartData *ChartData `json:"chart_data"`
}
