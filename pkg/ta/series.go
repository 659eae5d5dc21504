package ta

// Last 取序列倒数第 position+1 个值，position=0 为最新值
func Last(s []float64, position int) float64 {
	return s[len(s)-1-position]
}

func Crossover(s1, s2 []float64) bool {
	return Last(s1, 0) > Last(s2, 0) && Last(s1, 1) <= Last(s2, 1)
}

func Crossunder(s1, s2 []float64) bool {
	return Last(s1, 0) <= Last(s2, 0) && Last(s1, 1) > Last(s2, 1)
}

func lastValues(s []float64, size int) []float64 {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Lowest 最近 period 个值中的最小值
func Lowest(s []float64, period int) float64 {
	arr := lastValues(s, period)
	minVal := arr[0]
	for _, value := range arr {
		if value < minVal {
			minVal = value
		}
	}
	return minVal
}

// Highest 最近 period 个值中的最大值
func Highest(s []float64, period int) float64 {
	arr := lastValues(s, period)
	maxVal := arr[0]
	for _, value := range arr {
		if value > maxVal {
			maxVal = value
		}
	}
	return maxVal
}
