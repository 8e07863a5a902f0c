package feed

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"marketplace_v1_202610/internal/apperr"
)

// ==================== 价目表结构 ====================

// Feed 经销商价目表
type Feed struct {
	Shop       string     `yaml:"shop" validate:"required,max=50"`
	Categories []Category `yaml:"categories" validate:"dive"`
	Goods      []Good     `yaml:"goods" validate:"dive"`
}

type Category struct {
	ID   int64  `yaml:"id" validate:"gt=0"`
	Name string `yaml:"name" validate:"required,max=40"`
}

// Good 价目表中的一条商品报价
type Good struct {
	ID         int64          `yaml:"id" validate:"gt=0"` // 即 bp_number
	Category   int64          `yaml:"category" validate:"gt=0"`
	Model      string         `yaml:"model" validate:"required,max=255"`
	Name       string         `yaml:"name" validate:"required,max=255"`
	Price      int64          `yaml:"price" validate:"gt=0"`
	PriceRRC   int64          `yaml:"price_rrc" validate:"gt=0"`
	Quantity   int            `yaml:"quantity" validate:"gte=0"`
	Parameters map[string]any `yaml:"parameters"`
}

// 与数据库列宽一致
const (
	MaxParamNameLen  = 100
	MaxParamValueLen = 255
)

// Param 规范化后的参数
type Param struct {
	Name  string
	Value string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息使用 YAML 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ==================== 解析 ====================

// Parse 解析并校验价目表，任何格式问题均返回 feed_parse_error
func Parse(data []byte) (*Feed, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, apperr.New(apperr.KindFeedParse, "价目表为空")
	}

	var f Feed
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, apperr.Wrap(apperr.KindFeedParse, "价目表格式错误", err)
	}

	if err := validate.Struct(&f); err != nil {
		return nil, apperr.Wrap(apperr.KindFeedParse, describeValidation(err), err)
	}

	for i, g := range f.Goods {
		for name := range g.Parameters {
			n := strings.TrimSpace(name)
			if n == "" || utf8.RuneCountInString(n) > MaxParamNameLen {
				return nil, apperr.New(apperr.KindFeedParse, fmt.Sprintf("goods[%d] 参数名非法: %q", i, name))
			}
		}
	}
	return &f, nil
}

// describeValidation 把校验错误转为 "goods[3].price: gt" 形式
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "价目表校验失败"
	}
	fe := verrs[0]
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		ns = ns[idx+1:]
	}
	return fmt.Sprintf("价目表校验失败: %s 不满足 %s", strings.ToLower(ns), fe.Tag())
}

// CategoryIDs 价目表中声明的分类
func (f *Feed) CategoryIDs() map[int64]struct{} {
	ids := make(map[int64]struct{}, len(f.Categories))
	for _, c := range f.Categories {
		ids[c.ID] = struct{}{}
	}
	return ids
}

// Params 参数按名称排序后返回，值统一转为字符串
func (g *Good) Params() []Param {
	params := make([]Param, 0, len(g.Parameters))
	for name, v := range g.Parameters {
		params = append(params, Param{Name: strings.TrimSpace(name), Value: truncate(FormatValue(v), MaxParamValueLen)})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params
}

// FormatValue 参数值可以是任意标量
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
