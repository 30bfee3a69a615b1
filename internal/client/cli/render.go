package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"google.golang.org/protobuf/types/known/structpb"
)

func num(s *structpb.Struct, key string) int64 {
	return int64(s.GetFields()[key].GetNumberValue())
}

func hasNumber(s *structpb.Struct, key string) bool {
	_, ok := s.GetFields()[key].GetKind().(*structpb.Value_NumberValue)
	return ok
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolean(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func list(s *structpb.Struct, key string) []*structpb.Struct {
	values := s.GetFields()[key].GetListValue().GetValues()
	out := make([]*structpb.Struct, 0, len(values))
	for _, v := range values {
		if st := v.GetStructValue(); st != nil {
			out = append(out, st)
		}
	}
	return out
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func unixTime(v int64) string {
	return time.Unix(v, 0).UTC().Format(time.RFC3339)
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}

// renderTable writes rows as a pterm table. The first row is the header when
// header is set.
func (a *App) renderTable(header bool, rows pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader(header).WithData(rows).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, s)
	return err
}

func (a *App) renderFields(rows ...[]string) error {
	return a.renderTable(false, pterm.TableData(rows))
}
