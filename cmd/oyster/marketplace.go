package main

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/conversion"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/oyster"
)

var marketplaceCmd = &cli.Command{
	Name:  "marketplace",
	Usage: "Browse the instances providers offer",
	Subcommands: []*cli.Command{
		marketplaceList,
		marketplaceFilters,
	},
}

var filterFlags = []cli.Flag{
	&cli.StringFlag{Name: "provider", Usage: "provider name or address"},
	&cli.StringFlag{Name: "region", Usage: "region code"},
	&cli.StringFlag{Name: "instance", Usage: "instance type"},
	&cli.Int64Flag{Name: "vcpu", Usage: "number of vcpus"},
	&cli.Int64Flag{Name: "memory", Usage: "memory in MiB"},
	&cli.BoolFlag{Name: "exact", Usage: "match filter values exactly instead of by substring"},
	&cli.BoolFlag{Name: "strict", Usage: "only keep listings that have every filtered field"},
}

// optionValue treats the "All" filter option as no filter.
func optionValue(s string) string {
	if strings.EqualFold(s, constants.FilterAllOption) {
		return ""
	}
	return s
}

func filteredListings(cctx *cli.Context, listings []models.MarketplaceListing) []models.MarketplaceListing {
	f := oyster.Filter{
		Provider: optionValue(cctx.String("provider")),
		Region:   optionValue(cctx.String("region")),
		Instance: optionValue(cctx.String("instance")),
		Vcpu:     cctx.Int64("vcpu"),
		Memory:   cctx.Int64("memory"),
	}
	if cctx.Bool("strict") {
		return oyster.FilterMarketplaceStrict(listings, f)
	}
	return oyster.FilterMarketplace(listings, f, cctx.Bool("exact"))
}

func optionalNumber(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

var marketplaceList = &cli.Command{
	Name:  "list",
	Usage: "List marketplace listings",
	Flags: append([]cli.Flag{
		&cli.StringFlag{Name: "search", Usage: "search provider, instance and region"},
		&cli.StringFlag{Name: "sort", Usage: "rate, memory, vcpu, instance or region"},
		&cli.StringFlag{Name: "order", Usage: "asc or desc", Value: string(oyster.OrderAsc)},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "show full provider addresses"},
	}, filterFlags...),
	Action: func(cctx *cli.Context) error {
		order, err := oyster.ParseOrder(cctx.String("order"))
		if err != nil {
			return err
		}
		var key oyster.ListingSortKey
		if s := cctx.String("sort"); s != "" {
			if key, err = oyster.ParseListingSortKey(s); err != nil {
				return err
			}
		}

		n, err := loadNode(cctx)
		if err != nil {
			return err
		}
		defer n.close()
		state := n.refresh(reqContext(cctx))
		if !state.MarketplaceLoaded {
			printWarn("marketplace could not be loaded")
		}

		listings := oyster.SearchMarketplace(cctx.String("search"), filteredListings(cctx, state.AllMarketplaceData))
		if key != "" {
			listings = oyster.SortMarketplace(listings, key, order)
		}

		token := n.token()
		var data [][]string
		for _, item := range listings {
			provider := item.Provider.Address
			if !cctx.Bool("verbose") {
				provider = shortAddress(provider)
			}
			region := item.Region
			if item.RegionName != "" {
				region = fmt.Sprintf("%s (%s)", item.RegionName, item.Region)
			}
			data = append(data, []string{
				item.Provider.Name, provider, item.Instance, region,
				optionalNumber(item.Vcpu), optionalNumber(item.Memory),
				oyster.ConvertRateToPerHourString(item.Rate, token.Decimals, token.Precision) + " " + token.Symbol,
			})
		}

		header := []string{"NAME", "PROVIDER", "INSTANCE", "REGION", "VCPU", "MEMORY", "RATE/HOUR"}
		fmt.Println("")
		NewVisualTable(header, data, nil).Generate()
		return nil
	},
}

var marketplaceFilters = &cli.Command{
	Name:  "filters",
	Usage: "List the filter values left by the given filters",
	Flags: filterFlags,
	Action: func(cctx *cli.Context) error {
		n, err := loadNode(cctx)
		if err != nil {
			return err
		}
		defer n.close()
		state := n.refresh(reqContext(cctx))
		filters := oyster.DeriveFilters(filteredListings(cctx, state.AllMarketplaceData), true)

		regions := make([]string, 0, len(filters.Regions))
		for _, r := range filters.Regions {
			if r.Name != "" && r.Name != r.Code {
				regions = append(regions, fmt.Sprintf("%s (%s)", r.Name, r.Code))
				continue
			}
			regions = append(regions, r.Code)
		}
		printField("provider", strings.Join(filters.Providers, ", "))
		printField("instance", strings.Join(filters.Instances, ", "))
		printField("region", strings.Join(regions, ", "))
		printField("vcpu", strings.Join(filters.Vcpus, ", "))
		printField("memory", strings.Join(filters.Memories, ", "))
		return nil
	},
}

// parseTokenAmount reads an amount given in token units, e.g. "1.5" USDC.
func parseTokenAmount(value string, decimals int) (*big.Int, error) {
	amount, err := conversion.StringToBigInt(value, decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %s, error: %+v", value, err)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero: %s", value)
	}
	return amount, nil
}
