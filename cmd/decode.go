package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/kevmo314/offsetview/pkg/decoder"
	"github.com/kevmo314/offsetview/pkg/pointer"
	"github.com/kevmo314/offsetview/pkg/span"
	"github.com/kevmo314/offsetview/pkg/types"
	"github.com/spf13/cobra"
)

var (
	addrColor  = color.New(color.FgCyan).SprintFunc()
	typeColor  = color.New(color.FgGreen).SprintFunc()
	nullColor  = color.New(color.FgYellow).SprintFunc()
	errorColor = color.New(color.FgRed).SprintFunc()
)

// offsetType looks up name and wraps it in kind unless it already is an
// offset type of that kind.
func offsetType(table *types.Table, name string, kind types.Kind) (*types.Type, error) {
	t, err := table.Lookup(name)
	if err != nil {
		return nil, err
	}
	switch {
	case t.Kind == kind:
		return t, nil
	case kind == types.KindOffsetPointer:
		return table.PointerTo(t), nil
	default:
		return table.SpanOf(t), nil
	}
}

func newPtrCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ptr [flags] type address",
		Short: "decode an offset pointer.",
		Long: `Decode the offset pointer stored at address. type is either the
	element type or an offset_ptr<T> type.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.done(&err)
			typ, err := offsetType(s.table, args[0], types.KindOffsetPointer)
			if err != nil {
				return err
			}
			addr, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			deref, _ := cmd.Flags().GetBool("deref")
			return printPointer(cmd.OutOrStdout(), s, typ, addr, deref)
		},
	}
	cmd.Flags().BoolP("deref", "d", false, "also read the element the pointer refers to")
	return cmd
}

func printPointer(w io.Writer, s *session, typ *types.Type, addr pointer.Address, deref bool) error {
	res, err := s.reg.Decode(s.mem, typ, addr)
	if err != nil {
		return err
	}
	p := res.(*decoder.PointerResult)
	fmt.Fprintf(w, "%s: (%s *) %s\n", addrColor(addr), typeColor(p.Type), formatTarget(p.Target))
	if !deref || p.IsNull() {
		return nil
	}
	target, _ := p.Target.Address()
	if p.Type.IsOffset() {
		fmt.Fprintf(w, "  * = %s\n", formatNested(s, p.Type, target))
		return nil
	}
	b, err := p.Deref(s.mem)
	fmt.Fprintf(w, "  * = %s\n", formatBytes(s, p.Type, b, err))
	return nil
}

func newSpanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "span [flags] type address",
		Short: "decode an offset span and list its elements.",
		Long: `Decode the offset span stored at address and list a window of its
	elements. type is either the element type or an offset_span<T> type.
	Elements are only read when listed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.done(&err)
			typ, err := offsetType(s.table, args[0], types.KindOffsetSpan)
			if err != nil {
				return err
			}
			addr, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			start, _ := cmd.Flags().GetInt("start")
			limit, _ := cmd.Flags().GetInt("limit")
			return printSpan(cmd.OutOrStdout(), s, typ, addr, start, limit)
		},
	}
	cmd.Flags().Int("start", 0, "first element to list")
	cmd.Flags().IntP("limit", "n", 16, "maximum number of elements to list, -1 for all")
	return cmd
}

func printSpan(w io.Writer, s *session, typ *types.Type, addr pointer.Address, start, limit int) error {
	res, err := s.reg.Decode(s.mem, typ, addr)
	if err != nil {
		return err
	}
	sp := res.(*decoder.SpanResult)
	fmt.Fprintf(w, "%s: %s at %s\n", addrColor(addr), typeColor(sp.Summary()), formatTarget(sp.Seq.View().Data()))
	if start < 0 || uint64(start) > sp.Len() {
		return &span.RangeError{Index: start, Length: sp.Len()}
	}
	var shown uint64
	for i, v := range sp.Window(s.mem, start, limit) {
		var text string
		if v.Ref.Type.IsOffset() {
			text = formatNested(s, v.Ref.Type, v.Ref.Address)
		} else {
			text = formatBytes(s, v.Ref.Type, v.Bytes, v.Err)
		}
		fmt.Fprintf(w, "  [%d] %s = %s\n", i, addrColor(v.Ref.Address), text)
		shown++
	}
	if rest := sp.Len() - uint64(start) - shown; rest > 0 {
		fmt.Fprintf(w, "  ... %d more\n", rest)
	}
	return nil
}

func formatTarget(r pointer.Resolved) string {
	if r.IsNull() {
		return nullColor(r)
	}
	return addrColor(r)
}

// formatNested decodes the offset pointer or span at addr without following
// it further.
func formatNested(s *session, typ *types.Type, addr pointer.Address) string {
	res, err := s.reg.Decode(s.mem, typ, addr)
	if err != nil {
		return errorColor(err)
	}
	return res.String()
}

func formatBytes(s *session, typ *types.Type, b []byte, err error) string {
	if err != nil {
		return errorColor(err)
	}
	return formatValue(typ, b, s.table.Layout().Order)
}
