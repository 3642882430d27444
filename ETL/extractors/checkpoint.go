package extractors

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// RawCheckpointFile - имя файла контрольной точки сырых данных индикаторов
const RawCheckpointFile = "indicators_raw.json.sz"

// Checkpoint сохраняет и читает сырую выгрузку индикаторов, сжатую snappy
type Checkpoint struct {
	dir string
}

// NewCheckpoint создает контрольную точку в каталоге dir
func NewCheckpoint(dir string) *Checkpoint {
	return &Checkpoint{dir: dir}
}

// Path возвращает путь к файлу контрольной точки
func (c *Checkpoint) Path() string {
	return filepath.Join(c.dir, RawCheckpointFile)
}

// Exists сообщает, что контрольная точка уже записана
func (c *Checkpoint) Exists() bool {
	_, err := os.Stat(c.Path())
	return err == nil
}

// Compress сжимает данные контрольной точки
func Compress(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// Decompress распаковывает данные контрольной точки
func Decompress(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	return decompressed, nil
}

// Save записывает записи индикаторов в контрольную точку
func (c *Checkpoint) Save(records []models.IndicatorRecord) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога контрольных точек: %w", err)
	}

	if records == nil {
		records = []models.IndicatorRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записей индикаторов: %w", err)
	}

	// Пишем во временный файл и переименовываем, чтобы не оставить частичную запись
	tmp := c.Path() + ".tmp"
	if err := os.WriteFile(tmp, Compress(data), 0o644); err != nil {
		return fmt.Errorf("ошибка записи контрольной точки: %w", err)
	}
	if err := os.Rename(tmp, c.Path()); err != nil {
		return fmt.Errorf("ошибка записи контрольной точки: %w", err)
	}
	return nil
}

// Load читает записи индикаторов из контрольной точки.
// Отсутствующий файл возвращает ошибку, оборачивающую models.ErrMissingPrerequisite.
func (c *Checkpoint) Load() ([]models.IndicatorRecord, error) {
	compressed, err := os.ReadFile(c.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: контрольная точка %s не найдена, сначала выполните извлечение",
				models.ErrMissingPrerequisite, c.Path())
		}
		return nil, fmt.Errorf("ошибка чтения контрольной точки: %w", err)
	}

	data, err := Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки контрольной точки: %w", err)
	}

	var records []models.IndicatorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("ошибка разбора контрольной точки: %w", err)
	}
	return records, nil
}
