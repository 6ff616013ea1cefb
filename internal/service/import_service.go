package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
)

const defaultImportMaxRows = 1000

// Column layouts for the downloadable CSV templates.
var (
	equipmentImportHeader = []string{"machine_id", "machine_name", "tonnage", "capacity_per_hour", "shift_start", "shift_end", "status"}
	orderImportHeader     = []string{"order_number", "product_code", "product_name", "quantity", "due_date", "priority", "is_urgent", "notes"}
	productImportHeader   = []string{"product_code", "product_name", "required_tonnage", "cycle_time", "cavity_count", "min_stock"}
)

type equipmentImporter interface {
	Create(ctx context.Context, userID string, req dto.CreateEquipmentRequest) (*models.Equipment, error)
}

type orderImporter interface {
	Create(ctx context.Context, userID string, req dto.CreateOrderRequest) (*models.Order, error)
}

type productImporter interface {
	Create(ctx context.Context, userID string, req dto.CreateProductRequest) (*models.Product, error)
}

// ImportService parses CSV bulk uploads and feeds rows through the regular
// create paths so all validation applies.
type ImportService struct {
	equipment equipmentImporter
	orders    orderImporter
	products  productImporter
	validator *validator.Validate
	logger    *zap.Logger
	maxRows   int
}

// NewImportService constructs an ImportService.
func NewImportService(equipment equipmentImporter, orders orderImporter, products productImporter, validate *validator.Validate, logger *zap.Logger, maxRows int) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if maxRows <= 0 {
		maxRows = defaultImportMaxRows
	}
	return &ImportService{equipment: equipment, orders: orders, products: products, validator: validate, logger: logger, maxRows: maxRows}
}

// ImportEquipment loads machines from a CSV stream.
func (s *ImportService) ImportEquipment(ctx context.Context, userID string, r io.Reader) (*dto.ImportResult, error) {
	return s.run(ctx, r, equipmentImportHeader, func(ctx context.Context, record map[string]string) error {
		tonnage, err := parseIntField(record["tonnage"], "tonnage")
		if err != nil {
			return err
		}
		capacity, err := parseIntField(record["capacity_per_hour"], "capacity_per_hour")
		if err != nil {
			return err
		}
		_, err = s.equipment.Create(ctx, userID, dto.CreateEquipmentRequest{
			MachineID:       record["machine_id"],
			MachineName:     record["machine_name"],
			Tonnage:         tonnage,
			CapacityPerHour: capacity,
			ShiftStart:      record["shift_start"],
			ShiftEnd:        record["shift_end"],
			Status:          record["status"],
		})
		return err
	})
}

// ImportOrders loads production orders from a CSV stream.
func (s *ImportService) ImportOrders(ctx context.Context, userID string, r io.Reader) (*dto.ImportResult, error) {
	return s.run(ctx, r, orderImportHeader, func(ctx context.Context, record map[string]string) error {
		quantity, err := parseIntField(record["quantity"], "quantity")
		if err != nil {
			return err
		}
		priority := 0
		if record["priority"] != "" {
			if priority, err = parseIntField(record["priority"], "priority"); err != nil {
				return err
			}
		}
		isUrgent := strings.EqualFold(record["is_urgent"], "true") || record["is_urgent"] == "1"
		_, err = s.orders.Create(ctx, userID, dto.CreateOrderRequest{
			OrderNumber: record["order_number"],
			ProductCode: record["product_code"],
			ProductName: record["product_name"],
			Quantity:    quantity,
			DueDate:     record["due_date"],
			Priority:    priority,
			IsUrgent:    isUrgent,
			Notes:       record["notes"],
		})
		return err
	})
}

// ImportProducts loads product master data from a CSV stream.
func (s *ImportService) ImportProducts(ctx context.Context, userID string, r io.Reader) (*dto.ImportResult, error) {
	return s.run(ctx, r, productImportHeader, func(ctx context.Context, record map[string]string) error {
		req := dto.CreateProductRequest{
			ProductCode: record["product_code"],
			ProductName: record["product_name"],
			CavityCount: 1,
		}
		if record["required_tonnage"] != "" {
			tonnage, err := parseIntField(record["required_tonnage"], "required_tonnage")
			if err != nil {
				return err
			}
			req.RequiredTonnage = &tonnage
		}
		if record["cycle_time"] != "" {
			cycleTime, err := strconv.ParseFloat(record["cycle_time"], 64)
			if err != nil {
				return fmt.Errorf("invalid cycle_time %q", record["cycle_time"])
			}
			req.CycleTimeSeconds = &cycleTime
		}
		if record["cavity_count"] != "" {
			cavities, err := parseIntField(record["cavity_count"], "cavity_count")
			if err != nil {
				return err
			}
			req.CavityCount = cavities
		}
		if record["min_stock"] != "" {
			minStock, err := parseIntField(record["min_stock"], "min_stock")
			if err != nil {
				return err
			}
			req.MinStock = minStock
		}
		_, err := s.products.Create(ctx, userID, req)
		return err
	})
}

// Template returns the CSV template for the given import kind.
func (s *ImportService) Template(kind string) ([]byte, error) {
	var header []string
	switch kind {
	case "equipment":
		header = equipmentImportHeader
	case "orders":
		header = orderImportHeader
	case "products":
		header = productImportHeader
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown template kind")
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write template header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush template: %w", err)
	}
	return []byte(sb.String()), nil
}

func (s *ImportService) run(ctx context.Context, r io.Reader, header []string, apply func(context.Context, map[string]string) error) (*dto.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	head, err := reader.Read()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing csv header")
	}
	index, err := headerIndex(head, header)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid csv header")
	}

	result := &dto.ImportResult{BatchID: uuid.NewString()}
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, dto.ImportRowError{Row: row, Message: err.Error()})
			continue
		}
		if row-1 > s.maxRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import exceeds %d rows", s.maxRows))
		}

		fields := make(map[string]string, len(index))
		for name, col := range index {
			if col < len(record) {
				fields[name] = strings.TrimSpace(record[col])
			}
		}
		if err := apply(ctx, fields); err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, dto.ImportRowError{Row: row, Message: importErrorMessage(err)})
			continue
		}
		result.Imported++
	}

	s.logger.Info("csv import finished",
		zap.String("batch_id", result.BatchID),
		zap.Int("imported", result.Imported),
		zap.Int("rejected", result.Rejected))
	return result, nil
}

func headerIndex(head, required []string) (map[string]int, error) {
	index := make(map[string]int, len(head))
	for i, name := range head {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return index, nil
}

func parseIntField(raw, name string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}

func importErrorMessage(err error) string {
	if appErr := appErrors.FromError(err); appErr != nil {
		return appErr.Message
	}
	return err.Error()
}
