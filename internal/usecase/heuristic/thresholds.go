package heuristic

// Thresholds holds every tunable number the rules compare against.
type Thresholds struct {
	LargeTableGB           float64
	VeryLargeTableGB       float64
	ScanRatio              float64
	MinFilterColumns       int
	MVMinRepeats           int
	StaleDays              int
	PartitionStaleDays     int
	WideTableColumns       int
	StringColumnsThreshold int
}

// DefaultThresholds returns the values used when configuration leaves them unset.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LargeTableGB:           1,
		VeryLargeTableGB:       100,
		ScanRatio:              0.5,
		MinFilterColumns:       2,
		MVMinRepeats:           3,
		StaleDays:              180,
		PartitionStaleDays:     90,
		WideTableColumns:       50,
		StringColumnsThreshold: 3,
	}
}
