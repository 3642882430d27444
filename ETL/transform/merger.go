package transform

import (
	"errors"
	"fmt"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

var (
	// ErrKeyMismatch - ключ соединения отсутствует на одной из сторон или имеет разный тип
	ErrKeyMismatch = errors.New("несовместимые ключи соединения")

	// ErrDuplicateKey - значение ключа встречается в правой таблице более одного раза
	ErrDuplicateKey = errors.New("неуникальный ключ")
)

// MergeLeft выполняет левое внешнее соединение left и right по колонкам on.
// Результат содержит ровно одну строку на каждую строку left в исходном порядке.
// Строки left без пары получают пустые значения правых колонок, строки right без пары отбрасываются.
// Пустой ключ не совпадает ни с чем. Совпадающие имена неключевых правых колонок
// переименовываются в <right.Name>_<колонка>.
func MergeLeft(left, right *models.Table, on ...string) (*models.Table, error) {
	if left == nil || right == nil {
		return nil, fmt.Errorf("%w: таблица для соединения не задана", models.ErrMissingPrerequisite)
	}
	if len(on) == 0 {
		return nil, fmt.Errorf("%w: не заданы ключи соединения", ErrKeyMismatch)
	}

	leftIdx := make([]int, len(on))
	rightIdx := make([]int, len(on))
	isKey := make(map[int]bool, len(on))
	for i, key := range on {
		l := left.ColumnIndex(key)
		r := right.ColumnIndex(key)
		if l < 0 || r < 0 {
			return nil, fmt.Errorf("%w: колонка %s отсутствует в %s или %s", ErrKeyMismatch, key, left.Name, right.Name)
		}
		if left.Columns[l].Kind != right.Columns[r].Kind {
			return nil, fmt.Errorf("%w: %s.%s (%s) и %s.%s (%s)", ErrKeyMismatch,
				left.Name, key, left.Columns[l].Kind, right.Name, key, right.Columns[r].Kind)
		}
		leftIdx[i] = l
		rightIdx[i] = r
		isKey[r] = true
	}

	outCols := append([]models.Column(nil), left.Columns...)
	taken := make(map[string]bool, len(outCols))
	for _, c := range outCols {
		taken[c.Name] = true
	}
	var carried []int
	for i, c := range right.Columns {
		if isKey[i] {
			continue
		}
		name := c.Name
		if taken[name] {
			name = right.Name + "_" + c.Name
		}
		taken[name] = true
		outCols = append(outCols, models.Column{Name: name, Kind: c.Kind})
		carried = append(carried, i)
	}

	index := make(map[string]models.Row, len(right.Rows))
	for _, row := range right.Rows {
		key, ok := joinKey(row, rightIdx)
		if !ok {
			continue
		}
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("%w: %s содержит повторяющийся ключ %v", ErrDuplicateKey, right.Name, keyValues(row, rightIdx))
		}
		index[key] = row
	}

	out := models.NewTable(left.Name, outCols...)
	out.Rows = make([]models.Row, 0, len(left.Rows))
	for _, row := range left.Rows {
		merged := make(models.Row, len(outCols))
		copy(merged, row)
		if key, ok := joinKey(row, leftIdx); ok {
			if match, found := index[key]; found {
				for i, idx := range carried {
					merged[len(left.Columns)+i] = match[idx]
				}
			}
		}
		out.Rows = append(out.Rows, merged)
	}
	return out, nil
}

// MergeChain последовательно присоединяет таблицы к base в объявленном порядке
func MergeChain(base *models.Table, on []string, tables ...*models.Table) (*models.Table, error) {
	merged := base
	for _, t := range tables {
		var err error
		merged, err = MergeLeft(merged, t, on...)
		if err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func joinKey(row models.Row, idxs []int) (string, bool) {
	values := keyValues(row, idxs)
	for _, v := range values {
		if v == nil {
			return "", false
		}
	}
	return encodeKey(values), true
}

func keyValues(row models.Row, idxs []int) models.Row {
	values := make(models.Row, len(idxs))
	for i, idx := range idxs {
		values[i] = row[idx]
	}
	return values
}
