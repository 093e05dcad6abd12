package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/models"
)

// 目录布局，按实体状态分目录存放
const (
	adminDir    = "Admin"
	customerDir = "Customers"

	carsAvailableDir       = "Cars_Available"
	carsRentedDir          = "Cars_Rented"
	carsMaintenanceDir     = "Cars_Maintenance"
	rentalsActiveDir       = "Rentals_Active"
	rentalsCompletedDir    = "Rentals_Completed"
	maintenanceProgressDir = "Maintenance_InProgress"
	maintenanceDoneDir     = "Maintenance_Completed"
	revenueDir             = "Revenue"

	customersFile = "Customers.csv"
	agentsFile    = "Agents.csv"

	recordExt       = ".csv"
	timestampLayout = "20060102_150405"
)

var _ Store = (*FileStore)(nil)

// FileStore 基于 CSV 文件的存储
type FileStore struct {
	root   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore 创建文件存储并初始化目录
func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileStore{root: root, logger: logger}

	dirs := []string{
		s.path(customerDir),
		s.admin(carsAvailableDir),
		s.admin(carsRentedDir),
		s.admin(carsMaintenanceDir),
		s.admin(rentalsActiveDir),
		s.admin(rentalsCompletedDir),
		s.admin(maintenanceProgressDir),
		s.admin(maintenanceDoneDir),
		s.admin(revenueDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// Root 数据根目录
func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) path(elem ...string) string {
	return filepath.Join(append([]string{s.root}, elem...)...)
}

func (s *FileStore) admin(elem ...string) string {
	return s.path(append([]string{adminDir}, elem...)...)
}

// ---- 车辆 ----

func (s *FileStore) carDir(c *models.Car) string {
	switch c.Status {
	case models.CarRented:
		return s.admin(carsRentedDir)
	case models.CarUnderMaintenance:
		return s.admin(carsMaintenanceDir)
	default:
		return s.admin(carsAvailableDir)
	}
}

func (s *FileStore) carDirs() []string {
	return []string{s.admin(carsAvailableDir), s.admin(carsRentedDir), s.admin(carsMaintenanceDir)}
}

// LoadCars 读取全部车辆
func (s *FileStore) LoadCars(ctx context.Context) ([]*models.Car, error) {
	cars, err := loadRecordDirs(ctx, s, s.carDirs(), models.ParseCarRecord)
	if err != nil {
		return nil, fmt.Errorf("load cars: %w", err)
	}
	sortByID(cars, func(c *models.Car) string { return c.ID })
	return cars, nil
}

// SaveCars 按状态写入车辆，并删除不再属于该目录的文件
func (s *FileStore) SaveCars(ctx context.Context, cars []*models.Car) error {
	err := syncRecordDirs(ctx, s.carDirs(), cars,
		func(c *models.Car) string { return c.ID },
		s.carDir,
		func(c *models.Car) []string { return c.CSVRecord() },
	)
	if err != nil {
		return fmt.Errorf("save cars: %w", err)
	}
	return nil
}

// ---- 租赁 ----

func (s *FileStore) rentalDirs() []string {
	return []string{s.admin(rentalsActiveDir), s.admin(rentalsCompletedDir)}
}

// LoadRentals 读取全部租赁
func (s *FileStore) LoadRentals(ctx context.Context) ([]*models.Rental, error) {
	rentals, err := loadRecordDirs(ctx, s, s.rentalDirs(), models.ParseRentalRecord)
	if err != nil {
		return nil, fmt.Errorf("load rentals: %w", err)
	}
	sortByID(rentals, func(r *models.Rental) string { return r.ID })
	return rentals, nil
}

// SaveRentals 在 Active/Completed 目录之间移动租赁记录
func (s *FileStore) SaveRentals(ctx context.Context, rentals []*models.Rental) error {
	err := syncRecordDirs(ctx, s.rentalDirs(), rentals,
		func(r *models.Rental) string { return r.ID },
		func(r *models.Rental) string {
			if r.IsActive() {
				return s.admin(rentalsActiveDir)
			}
			return s.admin(rentalsCompletedDir)
		},
		func(r *models.Rental) []string { return r.CSVRecord() },
	)
	if err != nil {
		return fmt.Errorf("save rentals: %w", err)
	}
	return nil
}

// ---- 维修 ----

func (s *FileStore) maintenanceDirs() []string {
	return []string{s.admin(maintenanceProgressDir), s.admin(maintenanceDoneDir)}
}

// LoadMaintenance 读取全部维修记录
func (s *FileStore) LoadMaintenance(ctx context.Context) ([]*models.Maintenance, error) {
	records, err := loadRecordDirs(ctx, s, s.maintenanceDirs(), models.ParseMaintenanceRecord)
	if err != nil {
		return nil, fmt.Errorf("load maintenance: %w", err)
	}
	sortByID(records, func(m *models.Maintenance) string { return m.ID })
	return records, nil
}

// SaveMaintenance 在 InProgress/Completed 目录之间移动维修记录
func (s *FileStore) SaveMaintenance(ctx context.Context, records []*models.Maintenance) error {
	err := syncRecordDirs(ctx, s.maintenanceDirs(), records,
		func(m *models.Maintenance) string { return m.ID },
		func(m *models.Maintenance) string {
			if m.InProgress() {
				return s.admin(maintenanceProgressDir)
			}
			return s.admin(maintenanceDoneDir)
		},
		func(m *models.Maintenance) []string { return m.CSVRecord() },
	)
	if err != nil {
		return fmt.Errorf("save maintenance: %w", err)
	}
	return nil
}

// ---- 账号 ----

// LoadCustomers 读取客户
func (s *FileStore) LoadCustomers(ctx context.Context) ([]*models.Customer, error) {
	customers, err := loadLines(ctx, s, s.admin(customersFile), models.ParseCustomerRecord)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	return customers, nil
}

// SaveCustomers 整体重写客户文件
func (s *FileStore) SaveCustomers(ctx context.Context, customers []*models.Customer) error {
	records := make([][]string, 0, len(customers))
	for _, c := range customers {
		records = append(records, c.CSVRecord())
	}
	if err := writeCSV(s.admin(customersFile), records); err != nil {
		return fmt.Errorf("save customers: %w", err)
	}
	return nil
}

// LoadAgents 读取员工
func (s *FileStore) LoadAgents(ctx context.Context) ([]*models.CompanyAgent, error) {
	agents, err := loadLines(ctx, s, s.admin(agentsFile), models.ParseAgentRecord)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	return agents, nil
}

// SaveAgents 整体重写员工文件
func (s *FileStore) SaveAgents(ctx context.Context, agents []*models.CompanyAgent) error {
	records := make([][]string, 0, len(agents))
	for _, a := range agents {
		records = append(records, a.CSVRecord())
	}
	if err := writeCSV(s.admin(agentsFile), records); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	return nil
}

// ---- 文档 ----

// SaveDocument 收据写入 Customers/<id>/，报表写入 Admin/Revenue/
func (s *FileStore) SaveDocument(ctx context.Context, doc Document) error {
	var path string
	switch doc.Kind {
	case DocumentReceipt:
		dir := s.path(customerDir, doc.OwnerID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create receipt directory: %w", err)
		}
		path = filepath.Join(dir, documentName("Receipt", doc))
	case DocumentRevenue:
		path = s.admin(revenueDir, documentName("Revenue", doc))
	default:
		return fmt.Errorf("unknown document kind %q", doc.Kind)
	}

	if err := writeFileAtomic(path, []byte(doc.Content)); err != nil {
		return fmt.Errorf("save %s document: %w", doc.Kind, err)
	}
	return nil
}

// documentName 时间戳加文档 ID，同一秒内的多份文档互不覆盖
func documentName(prefix string, doc Document) string {
	name := prefix + "_" + doc.CreatedAt.Format(timestampLayout)
	if doc.ID != "" {
		name += "_" + doc.ID
	}
	return name + ".txt"
}

// ---- 事务 ----

type fileSnapshot struct {
	cars        []*models.Car
	rentals     []*models.Rental
	maintenance []*models.Maintenance
}

// Atomic 串行执行 fn；失败时把车辆、租赁、维修三个集合恢复到执行前
func (s *FileStore) Atomic(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}

	if err := fn(fileTx{s}); err != nil {
		if rbErr := s.restore(ctx, snap); rbErr != nil {
			s.logger.Error("Failed to roll back file store", zap.Error(rbErr))
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		s.logger.Debug("Rolled back file store", zap.Error(err))
		return err
	}
	return nil
}

func (s *FileStore) snapshot(ctx context.Context) (*fileSnapshot, error) {
	cars, err := s.LoadCars(ctx)
	if err != nil {
		return nil, err
	}
	rentals, err := s.LoadRentals(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.LoadMaintenance(ctx)
	if err != nil {
		return nil, err
	}
	return &fileSnapshot{cars: cars, rentals: rentals, maintenance: records}, nil
}

func (s *FileStore) restore(ctx context.Context, snap *fileSnapshot) error {
	// 使用不受上下文取消影响的上下文，保证回滚写完
	ctx = context.WithoutCancel(ctx)
	return errors.Join(
		s.SaveCars(ctx, snap.cars),
		s.SaveRentals(ctx, snap.rentals),
		s.SaveMaintenance(ctx, snap.maintenance),
	)
}

// fileTx 事务内视图，嵌套 Atomic 直接执行
type fileTx struct {
	*FileStore
}

func (t fileTx) Atomic(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

// ---- 通用读写 ----

// loadRecordDirs 每个文件一条记录，解析失败的文件跳过
func loadRecordDirs[T any](ctx context.Context, s *FileStore, dirs []string, parse func([]string) (T, error)) ([]T, error) {
	var out []T
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			items, err := loadLines(ctx, s, path, parse)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		}
	}
	return out, nil
}

// loadLines 逐行解析 CSV，坏行记录日志后跳过
func loadLines[T any](ctx context.Context, s *FileStore, path string, parse func([]string) (T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out []T
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				s.logger.Warn("Skipping malformed line", zap.String("file", path), zap.Error(err))
				continue
			}
			return nil, err
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		item, err := parse(rec)
		if err != nil {
			s.logger.Warn("Skipping unparsable record", zap.String("file", path), zap.Error(err))
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// syncRecordDirs 写入每条记录到 route 指定的目录，并删除其余目录中的多余文件
func syncRecordDirs[T any](ctx context.Context, dirs []string, items []T, id func(T) string, route func(T) string, record func(T) []string) error {
	want := make(map[string]bool, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(route(item), id(item)+recordExt)
		want[path] = true
		data, err := encodeCSV([][]string{record(item)})
		if err != nil {
			return err
		}
		if err := writeFileAtomic(path, data); err != nil {
			return err
		}
	}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if want[path] {
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
	}
	return nil
}

func writeCSV(path string, records [][]string) error {
	data, err := encodeCSV(records)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func encodeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic 先写临时文件再重命名
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
