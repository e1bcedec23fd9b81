package stats

// Latest возвращает самое свежее непустое значение столбца col.
// Строки просматриваются от последней к первой. ok == false означает,
// что в окне нет данных и значение не должно попасть в экспозицию.
func Latest(rows [][]*float64, col int) (v float64, ok bool) {
	if col < 0 {
		return 0, false
	}
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if col >= len(row) || row[col] == nil {
			continue
		}
		return *row[col], true
	}
	return 0, false
}
