// Package housing loads Taipei housing listings, derives the model features
// and runs the train/evaluate/persist procedure.
package housing

// CSV の列名
const (
	DistrictColumn     = "行政區"
	LandAreaColumn     = "土地面積"
	BuildingAreaColumn = "建物總面積"
	AgeColumn          = "屋齡"
	FloorColumn        = "樓層"
	TotalFloorsColumn  = "總樓層"
	RoomsColumn        = "房數"
	HallsColumn        = "廳數"
	BathroomsColumn    = "衛數"
	ElevatorColumn     = "電梯"
	ParkingColumn      = "車位類別"
	LongitudeColumn    = "經度"
	LatitudeColumn     = "緯度"
	TotalPriceColumn   = "總價"

	// UnitPriceColumn は 總價 / 建物總面積 で作る派生列
	UnitPriceColumn = "每坪單價"
)

// CategoricalColumns はワンホット化する列
var CategoricalColumns = []string{DistrictColumn, ParkingColumn}

// NumericColumns は float として読む入力列（目的変数を含む）
var NumericColumns = []string{
	LandAreaColumn,
	BuildingAreaColumn,
	AgeColumn,
	FloorColumn,
	TotalFloorsColumn,
	RoomsColumn,
	HallsColumn,
	BathroomsColumn,
	ElevatorColumn,
	LongitudeColumn,
	LatitudeColumn,
	TotalPriceColumn,
}

// FeatureColumns はモデルに渡す列（この順序で並べる）
var FeatureColumns = []string{
	DistrictColumn,
	LandAreaColumn,
	BuildingAreaColumn,
	AgeColumn,
	FloorColumn,
	TotalFloorsColumn,
	RoomsColumn,
	HallsColumn,
	BathroomsColumn,
	ElevatorColumn,
	ParkingColumn,
	LongitudeColumn,
	LatitudeColumn,
	UnitPriceColumn,
}

// RequiredColumns は入力ファイルに必須の列
func RequiredColumns() []string {
	cols := append([]string(nil), CategoricalColumns...)
	return append(cols, NumericColumns...)
}
