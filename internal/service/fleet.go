package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/apperr"
	"github.com/langchou/carrental/internal/models"
	"github.com/langchou/carrental/internal/repository"
)

// FleetService 车队管理
type FleetService struct {
	base
}

// NewFleetService 创建车队服务
func NewFleetService(store repository.Store, logger *zap.Logger) *FleetService {
	return &FleetService{base: newBase(store, logger)}
}

// CarInput 新增车辆参数，ID 为空时自动分配
type CarInput struct {
	ID         string
	Model      string
	Category   models.Category
	FuelType   models.FuelType
	HourlyRate decimal.Decimal
}

// RemovalReport 批量删除结果
type RemovalReport struct {
	Removed  []string
	NotFound []string
	Rented   []string
}

// carIDPattern 手动指定的车辆编号，同时作为文件名和数据库主键
var carIDPattern = regexp.MustCompile(`^[A-Z0-9]{1,32}$`)

// normalize 校验并规范化新增参数
func (in CarInput) normalize(op string) (CarInput, error) {
	out := CarInput{
		ID:         strings.ToUpper(strings.TrimSpace(in.ID)),
		Model:      strings.TrimSpace(in.Model),
		HourlyRate: in.HourlyRate,
	}
	if out.ID != "" && !carIDPattern.MatchString(out.ID) {
		return out, apperr.Validation(op, "Car ID must be 1-32 letters or digits")
	}
	if out.Model == "" {
		return out, apperr.Validation(op, "Car model is required")
	}
	if !in.HourlyRate.IsPositive() {
		return out, apperr.Validation(op, "Hourly rate must be positive")
	}
	if !in.HourlyRate.Equal(in.HourlyRate.Round(2)) {
		return out, apperr.Validation(op, "Hourly rate cannot have more than 2 decimal places")
	}

	var err error
	if out.Category, err = models.ParseCategory(string(in.Category)); err != nil {
		return out, apperr.Validation(op, fmt.Sprintf("Unknown category %q", in.Category))
	}
	if out.FuelType, err = models.ParseFuelType(string(in.FuelType)); err != nil {
		return out, apperr.Validation(op, fmt.Sprintf("Unknown fuel type %q", in.FuelType))
	}
	return out, nil
}

// AddCar 新增车辆
func (s *FleetService) AddCar(ctx context.Context, in CarInput) (*models.Car, error) {
	const op = "add car"

	in, err := in.normalize(op)
	if err != nil {
		return nil, err
	}

	var car *models.Car
	err = s.atomic(ctx, op, func(tx repository.Store) error {
		cars, err := tx.LoadCars(ctx)
		if err != nil {
			return err
		}

		id := in.ID
		if id == "" {
			id = firstFreeID("C", 3, carIDs(cars))
		} else if findCar(cars, id) != nil {
			return apperr.InvalidState(op, fmt.Sprintf("Car ID %s already exists", id))
		}

		car = models.NewCar(id, in.Model, in.Category, in.FuelType, in.HourlyRate)
		return tx.SaveCars(ctx, append(cars, car))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Car added", zap.String("car_id", car.ID), zap.String("model", car.Model))
	return car, nil
}

// BulkFailure 未通过校验的一行
type BulkFailure struct {
	Line   int
	Text   string
	Reason string
}

// BulkReport 批量新增结果
type BulkReport struct {
	Added    []*models.Car
	Failures []BulkFailure
}

// AddCars 逐行解析 "Model,Category,FuelType,HourlyRate"，编号接在现有最大值之后，最后一次性保存。
// 空行跳过，行号从 1 开始。
func (s *FleetService) AddCars(ctx context.Context, lines []string) (*BulkReport, error) {
	const op = "add cars"

	report := &BulkReport{}
	var inputs []CarInput
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		in, err := parseCarLine(op, line)
		if err != nil {
			report.Failures = append(report.Failures, BulkFailure{Line: i + 1, Text: line, Reason: apperr.MessageOf(err)})
			continue
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		if len(report.Failures) == 0 {
			return nil, apperr.Validation(op, "No car lines provided")
		}
		return report, nil
	}

	err := s.atomic(ctx, op, func(tx repository.Store) error {
		cars, err := tx.LoadCars(ctx)
		if err != nil {
			return err
		}

		ids := carIDs(cars)
		added := make([]*models.Car, 0, len(inputs))
		for _, in := range inputs {
			id := nextID("C", 3, ids)
			ids = append(ids, id)
			added = append(added, models.NewCar(id, in.Model, in.Category, in.FuelType, in.HourlyRate))
		}
		if err := tx.SaveCars(ctx, append(cars, added...)); err != nil {
			return err
		}
		report.Added = added
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cars added in bulk",
		zap.Int("added", len(report.Added)),
		zap.Int("failed", len(report.Failures)),
	)
	return report, nil
}

func parseCarLine(op, line string) (CarInput, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return CarInput{}, apperr.Validation(op, fmt.Sprintf("Wrong format, want 4 fields but got %d", len(parts)))
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(parts[3]))
	if err != nil {
		return CarInput{}, apperr.Validation(op, fmt.Sprintf("Invalid rate %q", strings.TrimSpace(parts[3])))
	}
	return CarInput{
		Model:      parts[0],
		Category:   models.Category(strings.TrimSpace(parts[1])),
		FuelType:   models.FuelType(strings.TrimSpace(parts[2])),
		HourlyRate: rate,
	}.normalize(op)
}

func carIDs(cars []*models.Car) []string {
	ids := make([]string, 0, len(cars))
	for _, c := range cars {
		ids = append(ids, c.ID)
	}
	return ids
}

// RemoveCars 批量删除车辆，已租车辆跳过
func (s *FleetService) RemoveCars(ctx context.Context, ids ...string) (*RemovalReport, error) {
	const op = "remove cars"

	var wanted []string
	for _, id := range ids {
		if id = strings.ToUpper(strings.TrimSpace(id)); id != "" {
			wanted = append(wanted, id)
		}
	}
	if len(wanted) == 0 {
		return nil, apperr.Validation(op, "No valid car IDs provided")
	}

	report := &RemovalReport{}
	err := s.atomic(ctx, op, func(tx repository.Store) error {
		cars, err := tx.LoadCars(ctx)
		if err != nil {
			return err
		}

		drop := make(map[string]bool)
		for _, id := range wanted {
			car := findCar(cars, id)
			switch {
			case car == nil:
				report.NotFound = append(report.NotFound, id)
			case car.Status == models.CarRented:
				report.Rented = append(report.Rented, id)
			case !drop[id]:
				drop[id] = true
				report.Removed = append(report.Removed, id)
			}
		}
		if len(drop) == 0 {
			return nil
		}

		kept := cars[:0]
		for _, c := range cars {
			if !drop[c.ID] {
				kept = append(kept, c)
			}
		}
		return tx.SaveCars(ctx, kept)
	})
	if err != nil {
		return nil, err
	}

	if len(report.Removed) > 0 {
		s.logger.Info("Cars removed", zap.Strings("car_ids", report.Removed))
	}
	return report, nil
}

// Deduplicate 删除重复 ID 的车辆，保留第一条，返回删除数量
func (s *FleetService) Deduplicate(ctx context.Context) (int, error) {
	const op = "deduplicate cars"

	removed := 0
	err := s.atomic(ctx, op, func(tx repository.Store) error {
		cars, err := tx.LoadCars(ctx)
		if err != nil {
			return err
		}

		seen := make(map[string]bool, len(cars))
		unique := make([]*models.Car, 0, len(cars))
		for _, c := range cars {
			if seen[c.ID] {
				removed++
				continue
			}
			seen[c.ID] = true
			unique = append(unique, c)
		}
		if removed == 0 {
			return nil
		}
		return tx.SaveCars(ctx, unique)
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.logger.Warn("Removed duplicate cars", zap.Int("count", removed))
	}
	return removed, nil
}

// defaultFleet 初始车队
func defaultFleet() []*models.Car {
	car := func(id, model string, cat models.Category, fuel models.FuelType, rate int64) *models.Car {
		return models.NewCar(id, model, cat, fuel, decimal.NewFromInt(rate))
	}
	return []*models.Car{
		car("C001", "Toyota RAV4", models.CategorySUV, models.FuelDualMotor, 80),
		car("C002", "Ford Explorer", models.CategorySUV, models.FuelStandardEngine, 75),
		car("C003", "Tesla Model X", models.CategorySUV, models.FuelEV, 120),
		car("C004", "Honda Civic", models.CategorySedan, models.FuelStandardEngine, 45),
		car("C005", "Tesla Model 3", models.CategorySedan, models.FuelEV, 65),
		car("C006", "Toyota Camry", models.CategorySedan, models.FuelDualMotor, 50),
		car("C007", "Honda Odyssey", models.CategoryVan, models.FuelStandardEngine, 90),
		car("C008", "Chrysler Pacifica", models.CategoryVan, models.FuelDualMotor, 95),
		car("C009", "Mercedes Sprinter", models.CategoryVan, models.FuelStandardEngine, 110),
		car("C010", "Nissan Altima", models.CategorySedan, models.FuelStandardEngine, 48),
	}
}

// SeedDefaults 集合为空时写入默认车队、客户和员工
func (s *FleetService) SeedDefaults(ctx context.Context) error {
	const op = "seed defaults"

	return s.atomic(ctx, op, func(tx repository.Store) error {
		cars, err := tx.LoadCars(ctx)
		if err != nil {
			return err
		}
		if len(cars) == 0 {
			if err := tx.SaveCars(ctx, defaultFleet()); err != nil {
				return err
			}
			s.logger.Info("Seeded default fleet")
		}

		customers, err := tx.LoadCustomers(ctx)
		if err != nil {
			return err
		}
		if len(customers) == 0 {
			if err := tx.SaveCustomers(ctx, []*models.Customer{models.NewCustomer("C001", "John Doe", "customer123")}); err != nil {
				return err
			}
			s.logger.Info("Seeded default customer")
		}

		agents, err := tx.LoadAgents(ctx)
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			if err := tx.SaveAgents(ctx, []*models.CompanyAgent{models.NewCompanyAgent("A001", "Admin", "admin123")}); err != nil {
				return err
			}
			s.logger.Info("Seeded default agent")
		}
		return nil
	})
}
