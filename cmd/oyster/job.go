package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/conversion"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/oyster"
	"github.com/PaulSpaurgen/interface-v2/internal/services"
)

var jobCmd = &cli.Command{
	Name:  "job",
	Usage: "Manage oyster jobs",
	Subcommands: []*cli.Command{
		jobList,
		jobDetail,
		jobCreate,
		jobDeposit,
		jobWithdraw,
		jobRevise,
		jobCancelRevise,
		jobFinalizeRevise,
		jobStop,
		jobSettle,
		jobApprove,
	},
}

var jobList = &cli.Command{
	Name:  "list",
	Usage: "List the jobs of the configured wallet",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "merchant", Usage: "list the jobs served by the wallet as a provider"},
		&cli.StringFlag{Name: "search", Usage: "search instance, region and provider (owner with --merchant)"},
		&cli.StringFlag{Name: "sort", Usage: "balance, rate, durationLeft, createdAt, instance, region, status, ..."},
		&cli.StringFlag{Name: "order", Usage: "asc or desc", Value: string(oyster.OrderAsc)},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "show full ids and addresses"},
	},
	Action: func(cctx *cli.Context) error {
		merchant := cctx.Bool("merchant")
		order, err := oyster.ParseOrder(cctx.String("order"))
		if err != nil {
			return err
		}
		var key oyster.JobSortKey
		if s := cctx.String("sort"); s != "" {
			if merchant {
				key, err = oyster.ParseOperatorJobSortKey(s)
			} else {
				key, err = oyster.ParseJobSortKey(s)
			}
			if err != nil {
				return err
			}
		}

		n, err := loadNode(cctx)
		if err != nil {
			return err
		}
		defer n.close()
		if n.owner() == "" {
			return fmt.Errorf("no wallet configured, set [WALLET] Address in config.toml")
		}
		state := n.refresh(reqContext(cctx))

		var jobs []models.Job
		if merchant {
			jobs = oyster.SearchOysterJobs(cctx.String("search"), state.MerchantJobsData)
			if key != "" {
				jobs = oyster.SortOperatorJobs(jobs, key, order)
			}
		} else {
			jobs = oyster.SearchInventory(cctx.String("search"), state.JobsData)
			if key != "" {
				jobs = oyster.SortJobs(jobs, key, order)
			}
		}

		verbose := cctx.Bool("verbose")
		token := n.token()
		now := n.store.Now()
		var data [][]string
		var rowColorList []RowColor
		for i, job := range jobs {
			id, counterparty := job.ID, job.Provider.DisplayName()
			if merchant {
				counterparty = job.Owner
			}
			if !verbose {
				id, counterparty = shortAddress(id), shortAddress(counterparty)
			}
			amount := job.Balance
			if merchant {
				amount = job.AmountToBeSettled
			}
			data = append(data, []string{
				id, counterparty, job.Instance, job.Region,
				conversion.BigIntToCommaString(amount, token.Precision, token.Decimals) + " " + token.Symbol,
				oyster.ConvertRateToPerHourString(job.DownScaledRate, token.Decimals, token.Precision),
				conversion.EpochToDurationString(job.DurationLeft),
				job.Status,
				string(oyster.ReviseRatePhase(job, now)),
			})
			rowColorList = append(rowColorList, RowColor{
				row:    i,
				column: []int{6, 7},
				color: []tablewriter.Colors{
					variantColors(oyster.InventoryDurationVariant(job.DurationLeft)),
					variantColors(oyster.InventoryStatusVariant(job.Status)),
				},
			})
		}

		header := []string{"JOB ID", "PROVIDER", "INSTANCE", "REGION", "BALANCE", "RATE/HOUR", "DURATION LEFT", "STATUS", "REVISE"}
		if merchant {
			header[1], header[4] = "OWNER", "TO BE SETTLED"
		}
		fmt.Println("")
		NewVisualTable(header, data, rowColorList).Generate()
		return nil
	},
}

var jobDetail = &cli.Command{
	Name:      "get",
	Usage:     "Get job detail info",
	ArgsUsage: "[job_id]",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return fmt.Errorf("incorrect number of arguments, got %d, missing args: job_id", cctx.NArg())
		}
		n, err := loadNode(cctx)
		if err != nil {
			return err
		}
		defer n.close()
		state := n.refresh(reqContext(cctx))
		job, ok := state.FindJob(cctx.Args().First())
		if !ok {
			if job, ok = state.FindMerchantJob(cctx.Args().First()); !ok {
				return fmt.Errorf("job not found: %s", cctx.Args().First())
			}
		}

		token := n.token()
		amount := func(v *big.Int) string {
			return conversion.BigIntToCommaString(v, token.Precision, token.Decimals) + " " + token.Symbol
		}
		now := n.store.Now()
		printField("Job ID", job.ID)
		printField("Owner", job.Owner)
		printField("Provider", fmt.Sprintf("%s (%s)", job.Provider.DisplayName(), job.Provider.Address))
		printField("Instance", job.Instance)
		printField("Region", job.Region)
		printField("vCPU", optionalNumber(job.Vcpu))
		printField("Memory", optionalNumber(job.Memory))
		printField("Enclave URL", job.EnclaveURL)
		printField("IP", job.IP)
		printField("Status", job.Status)
		printField("Rate/hour", oyster.ConvertRateToPerHourString(job.DownScaledRate, token.Decimals, token.Precision)+" "+token.Symbol)
		printField("Balance", amount(job.Balance))
		printField("Total deposit", amount(job.TotalDeposit))
		printField("Amount used", amount(job.AmountUsed))
		printField("Refund", amount(job.Refund))
		printField("To be settled", amount(job.AmountToBeSettled))
		printField("Created", time.Unix(job.CreatedAt, 0).UTC().Format(time.RFC3339))
		printField("Last settled", time.Unix(job.LastSettled, 0).UTC().Format(time.RFC3339))
		printField("Duration run", conversion.EpochToDurationString(job.DurationRun))
		printField("Duration left", conversion.EpochToDurationString(job.DurationLeft))
		if job.ReviseRate != nil {
			newRate := oyster.DownScaleRate(job.ReviseRate.NewRate, n.store.RateScalingFactor())
			printField("Revise phase", oyster.ReviseRatePhase(job, now))
			printField("Revised rate/hour", oyster.ConvertRateToPerHourString(newRate, token.Decimals, token.Precision)+" "+token.Symbol)
			printField("Revise time left", conversion.EpochToDurationString(oyster.ReviseTimeLeft(job, now)))
		}

		if len(job.DepositHistory) > 0 {
			var data [][]string
			for _, entry := range job.DepositHistory {
				data = append(data, []string{
					time.Unix(entry.Timestamp, 0).UTC().Format(time.RFC3339),
					entry.TransactionStatus, amount(entry.Amount), entry.TxHash,
				})
			}
			fmt.Println("")
			NewVisualTable([]string{"TIME", "TYPE", "AMOUNT", "TX HASH"}, data, nil).Generate()
		}
		return nil
	},
}

// withService refreshes the store so the job records actions read are current, then
// runs fn with a service signing for the configured wallet.
func withService(cctx *cli.Context, fn func(ctx context.Context, n *node, state models.State, service *services.OysterService) error) error {
	n, err := loadNode(cctx)
	if err != nil {
		return err
	}
	defer n.close()
	ctx := reqContext(cctx)
	service, err := n.service(ctx)
	if err != nil {
		return err
	}
	state := n.refresh(ctx)
	return fn(ctx, n, state, service)
}

func jobIDArg(cctx *cli.Context, want int, usage string) (string, error) {
	if cctx.NArg() != want {
		return "", fmt.Errorf("incorrect number of arguments, got %d, requires: %s", cctx.NArg(), usage)
	}
	return cctx.Args().First(), nil
}

// checkAllowance warns when the market contract may not pull amount from the wallet.
func checkAllowance(n *node, state models.State, amount *big.Int) {
	if state.Allowance == nil || state.Allowance.Cmp(amount) < 0 {
		token := n.token()
		printWarn("allowance %s %s is below %s %s, approve it first with: oyster job approve <amount>",
			conversion.BigIntToString(state.Allowance, token.Decimals, token.Precision), token.Symbol,
			conversion.BigIntToString(amount, token.Decimals, token.Precision), token.Symbol)
	}
}

var jobCreate = &cli.Command{
	Name:  "create",
	Usage: "Lease an instance from a provider",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "provider", Usage: "provider address", Required: true},
		&cli.StringFlag{Name: "instance", Usage: "instance type", Required: true},
		&cli.StringFlag{Name: "region", Usage: "region code", Required: true},
		&cli.StringFlag{Name: "duration", Usage: "number of hours to pay for", Required: true},
		&cli.StringFlag{Name: "url", Usage: "enclave image url"},
	},
	Action: func(cctx *cli.Context) error {
		duration := oyster.ComputeDuration(cctx.String("duration"), constants.OysterRateMetadata.UnitInSeconds)
		if duration <= 0 {
			return fmt.Errorf("invalid duration: %s", cctx.String("duration"))
		}
		return withService(cctx, func(ctx context.Context, n *node, state models.State, service *services.OysterService) error {
			req, err := services.ListingJobRequest(state.AllMarketplaceData, cctx.String("provider"), cctx.String("instance"),
				cctx.String("region"), cctx.String("url"), duration, n.store.RateScalingFactor())
			if err != nil {
				return err
			}
			checkAllowance(n, state, req.Balance)
			job, err := service.CreateJob(ctx, req)
			if err != nil {
				return err
			}
			printDone("job %s created", job.ID)
			return nil
		})
	},
}

func fundsAction(name, usage string, run func(ctx context.Context, service *services.OysterService, id string, amount *big.Int, duration int64) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "[job_id] [amount]",
		Action: func(cctx *cli.Context) error {
			id, err := jobIDArg(cctx, 2, "job_id amount")
			if err != nil {
				return err
			}
			return withService(cctx, func(ctx context.Context, n *node, state models.State, service *services.OysterService) error {
				amount, err := parseTokenAmount(cctx.Args().Get(1), n.token().Decimals)
				if err != nil {
					return err
				}
				job, ok := state.FindJob(id)
				if !ok {
					return fmt.Errorf("job not found: %s", id)
				}
				if name == "deposit" {
					checkAllowance(n, state, amount)
				}
				if err := run(ctx, service, id, amount, oyster.DurationForAmount(amount, job.DownScaledRate)); err != nil {
					return err
				}
				printDone("%s of %s on job %s done", name, cctx.Args().Get(1), id)
				return nil
			})
		},
	}
}

var jobDeposit = fundsAction("deposit", "Add funds to a job", func(ctx context.Context, service *services.OysterService, id string, amount *big.Int, duration int64) error {
	return service.AddFunds(ctx, id, amount, duration)
})

var jobWithdraw = fundsAction("withdraw", "Withdraw funds from a job", func(ctx context.Context, service *services.OysterService, id string, amount *big.Int, duration int64) error {
	return service.WithdrawFunds(ctx, id, amount, duration)
})

var jobRevise = &cli.Command{
	Name:      "revise",
	Usage:     "Start revising the rate of a job, a rate of 0 asks to stop the job",
	ArgsUsage: "[job_id] [rate_per_hour]",
	Action: func(cctx *cli.Context) error {
		id, err := jobIDArg(cctx, 2, "job_id rate_per_hour")
		if err != nil {
			return err
		}
		return withService(cctx, func(ctx context.Context, n *node, state models.State, service *services.OysterService) error {
			hourly, err := conversion.StringToBigInt(cctx.Args().Get(1), n.token().Decimals)
			if err != nil || hourly.Sign() < 0 {
				return fmt.Errorf("invalid rate: %s", cctx.Args().Get(1))
			}
			rate := oyster.HourlyRateToContractRate(hourly, n.store.RateScalingFactor())
			if err := service.InitiateRateRevise(ctx, id, rate); err != nil {
				return err
			}
			wait := time.Duration(n.store.RateReviseWaitingTime()) * time.Second
			printDone("rate revision of job %s started, it can be finalized in %s", id, wait)
			return nil
		})
	},
}

func jobAction(name, usage, done string, run func(ctx context.Context, service *services.OysterService, id string) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "[job_id]",
		Action: func(cctx *cli.Context) error {
			id, err := jobIDArg(cctx, 1, "job_id")
			if err != nil {
				return err
			}
			return withService(cctx, func(ctx context.Context, n *node, state models.State, service *services.OysterService) error {
				if err := run(ctx, service, id); err != nil {
					return err
				}
				printDone(done, id)
				return nil
			})
		},
	}
}

var jobCancelRevise = jobAction("cancel-revise", "Cancel the pending rate revision of a job", "rate revision of job %s cancelled",
	func(ctx context.Context, service *services.OysterService, id string) error {
		return service.CancelRateRevise(ctx, id)
	})

var jobFinalizeRevise = jobAction("finalize-revise", "Apply the pending rate revision of a job", "rate revision of job %s finalized",
	func(ctx context.Context, service *services.OysterService, id string) error {
		return service.FinalizeRateRevise(ctx, id)
	})

var jobStop = jobAction("stop", "Stop a job once its stop request is finalized", "job %s stopped",
	func(ctx context.Context, service *services.OysterService, id string) error {
		return service.StopJob(ctx, id)
	})

var jobSettle = jobAction("settle", "Settle the amount a served job owes the provider", "job %s settled",
	func(ctx context.Context, service *services.OysterService, id string) error {
		return service.ClaimAmount(ctx, id)
	})

var jobApprove = &cli.Command{
	Name:      "approve",
	Usage:     "Allow the oyster market to spend the given amount of the wallet",
	ArgsUsage: "[amount]",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return fmt.Errorf("incorrect number of arguments, got %d, requires: amount", cctx.NArg())
		}
		return withService(cctx, func(ctx context.Context, n *node, state models.State, service *services.OysterService) error {
			amount, err := parseTokenAmount(cctx.Args().First(), n.token().Decimals)
			if err != nil {
				return err
			}
			if err := service.ApproveFunds(ctx, amount); err != nil {
				return err
			}
			printDone("allowance set to %s %s", cctx.Args().First(), n.token().Symbol)
			return nil
		})
	},
}
