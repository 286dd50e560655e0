package repository

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/Alturino/mallofhookah/internal/backend"
)

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              d.Coefficient(),
		Exp:              d.Exponent(),
		InfinityModifier: pgtype.Finite,
		NaN:              false,
		Valid:            true,
	}
}

func toUUID(v any) (uuid.UUID, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case pgtype.UUID:
		if !x.Valid {
			return uuid.Nil, nil
		}
		return uuid.UUID(x.Bytes), nil
	case string:
		return uuid.Parse(x)
	case []byte:
		return uuid.ParseBytes(x)
	case nil:
		return uuid.Nil, nil
	default:
		return uuid.Nil, fmt.Errorf("unsupported uuid value of type %T", v)
	}
}

func toDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case decimal.Decimal:
		return x
	case pgtype.Numeric:
		if !x.Valid || x.Int == nil {
			return decimal.Zero
		}
		return decimal.NewFromBigInt(x.Int, x.Exp)
	case *big.Int:
		return decimal.NewFromBigInt(x, 0)
	case float64:
		return decimal.NewFromFloat(x)
	case float32:
		return decimal.NewFromFloat32(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int32:
		return decimal.NewFromInt32(x)
	case int64:
		return decimal.NewFromInt(x)
	case json.Number:
		d, _ := decimal.NewFromString(x.String())
		return d
	case string:
		d, _ := decimal.NewFromString(x)
		return d
	default:
		return decimal.Zero
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toInt32(v any) int32 {
	switch x := v.(type) {
	case int32:
		return x
	case int:
		return int32(x)
	case int64:
		return int32(x)
	case int16:
		return int32(x)
	case float64:
		return int32(x)
	case string:
		i, _ := strconv.Atoi(x)
		return int32(i)
	default:
		return 0
	}
}

func toBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	default:
		return false
	}
}

func toTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case pgtype.Timestamptz:
		return x.Time
	case pgtype.Timestamp:
		return x.Time
	case string:
		t, _ := time.Parse(time.RFC3339Nano, x)
		return t
	default:
		return time.Time{}
	}
}

// toObject accepts a jsonb value as decoded by the driver, or raw JSON text.
func toObject(v any) map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return x
	case backend.Row:
		return x
	case string:
		return decodeObject([]byte(x))
	case []byte:
		return decodeObject(x)
	default:
		return nil
	}
}

func decodeObject(b []byte) map[string]any {
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	obj := map[string]any{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	return obj
}

// firstString returns the first non-blank string found under keys.
func firstString(row map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(toString(row[k])); s != "" {
			return s
		}
	}
	return ""
}

func splitName(full string) (string, string) {
	fields := strings.Fields(full)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
