package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/PaulSpaurgen/interface-v2/internal/oyster"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

type VisualTable struct {
	Header   []string
	Data     [][]string
	RowColor []RowColor
	out      io.Writer
}

type RowColor struct {
	row    int
	column []int
	color  []tablewriter.Colors
}

func NewVisualTable(header []string, data [][]string, rowColor []RowColor) *VisualTable {
	return &VisualTable{
		Header:   header,
		Data:     data,
		RowColor: rowColor,
		out:      os.Stdout,
	}
}

func (v *VisualTable) Generate() {
	table := tablewriter.NewWriter(v.out)

	for index, datum := range v.Data {
		var rowColors []tablewriter.Colors
		for _, rowColor := range v.RowColor {
			if index != rowColor.row {
				continue
			}
			for dIndex := range datum {
				colors := tablewriter.Colors{}
				for n, colIndex := range rowColor.column {
					if dIndex == colIndex {
						colors = rowColor.color[n]
					}
				}
				rowColors = append(rowColors, colors)
			}
		}
		table.Rich(datum, rowColors)
	}

	table.SetHeader(v.Header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.Render()
}

func variantColors(v oyster.Variant) tablewriter.Colors {
	switch v {
	case oyster.VariantSuccess:
		return tablewriter.Colors{tablewriter.Bold, tablewriter.FgGreenColor}
	case oyster.VariantWarning:
		return tablewriter.Colors{tablewriter.Bold, tablewriter.FgYellowColor}
	case oyster.VariantError:
		return tablewriter.Colors{tablewriter.Bold, tablewriter.FgRedColor}
	}
	return tablewriter.Colors{}
}

func printDone(format string, a ...interface{}) {
	green.Fprintf(os.Stdout, format+"\n", a...)
}

func printWarn(format string, a ...interface{}) {
	yellow.Fprintf(os.Stdout, format+"\n", a...)
}

func printField(name string, value interface{}) {
	fmt.Printf("%-22s%v\n", name+":", value)
}

// shortAddress keeps the head and tail of an address for narrow tables.
func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
