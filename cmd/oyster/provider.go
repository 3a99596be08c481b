package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/oyster"
	"github.com/PaulSpaurgen/interface-v2/internal/services"
)

var providerCmd = &cli.Command{
	Name:  "provider",
	Usage: "Manage the provider registration of the wallet",
	Subcommands: []*cli.Command{
		providerInfo,
		providerOffer,
		providerRegister,
		providerUpdate,
		providerUnregister,
	},
}

var providerInfo = &cli.Command{
	Name:  "info",
	Usage: "Show the provider registration of the configured wallet",
	Action: func(cctx *cli.Context) error {
		n, err := loadNode(cctx)
		if err != nil {
			return err
		}
		defer n.close()
		if n.owner() == "" {
			return fmt.Errorf("no wallet configured, set [WALLET] Address in config.toml")
		}
		state := n.refresh(reqContext(cctx))
		if !state.ProviderData.Registered || state.ProviderData.Data == nil {
			printWarn("%s is not registered as a provider", n.owner())
			return nil
		}
		printField("Address", state.ProviderData.Data.ID)
		printField("Control plane", state.ProviderData.Data.CP)
		printField("Live", state.ProviderData.Data.Live)
		printField("Jobs served", len(state.MerchantJobsData))
		return nil
	},
}

var providerOffer = &cli.Command{
	Name:      "offer",
	Usage:     "List the instances and regions a provider offers",
	ArgsUsage: "[provider_address]",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return fmt.Errorf("incorrect number of arguments, got %d, missing args: provider_address", cctx.NArg())
		}
		n, err := loadNode(cctx)
		if err != nil {
			return err
		}
		defer n.close()
		state := n.refresh(reqContext(cctx))

		address := cctx.Args().First()
		offer := oyster.CreateOrderInstanceRegionFilters(address, state.AllMarketplaceData)
		token := n.token()
		var data [][]string
		for _, instance := range offer.Instances {
			for _, region := range offer.Regions {
				rate := oyster.RateForProviderAndFilters(address, instance, region.Code, state.AllMarketplaceData)
				if rate == nil {
					continue
				}
				data = append(data, []string{instance, region.Code, region.Name,
					oyster.ConvertRateToPerHourString(rate, token.Decimals, token.Precision) + " " + token.Symbol})
			}
		}
		if len(data) == 0 {
			printWarn("%s has no listing in the marketplace", address)
			return nil
		}
		fmt.Println("")
		NewVisualTable([]string{"INSTANCE", "REGION", "REGION NAME", "RATE/HOUR"}, data, nil).Generate()
		return nil
	},
}

func providerAction(name, usage string, needURL bool, run func(ctx context.Context, service *services.OysterService, cp string) error) *cli.Command {
	cmd := &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(cctx *cli.Context) error {
			var cp string
			if needURL {
				if cctx.NArg() != 1 {
					return fmt.Errorf("incorrect number of arguments, got %d, missing args: control_plane_url", cctx.NArg())
				}
				cp = cctx.Args().First()
			}
			return withService(cctx, func(ctx context.Context, n *node, state models.State, service *services.OysterService) error {
				if err := run(ctx, service, cp); err != nil {
					return err
				}
				printDone("provider %s: %s done", n.owner(), name)
				return nil
			})
		},
	}
	if needURL {
		cmd.ArgsUsage = "[control_plane_url]"
	}
	return cmd
}

var providerRegister = providerAction("register", "Register the wallet as a provider", true,
	func(ctx context.Context, service *services.OysterService, cp string) error {
		return service.RegisterProvider(ctx, cp)
	})

var providerUpdate = providerAction("update", "Update the control plane url of the provider", true,
	func(ctx context.Context, service *services.OysterService, cp string) error {
		return service.UpdateProvider(ctx, cp)
	})

var providerUnregister = providerAction("unregister", "Remove the provider registration of the wallet", false,
	func(ctx context.Context, service *services.OysterService, cp string) error {
		return service.UnregisterProvider(ctx)
	})
