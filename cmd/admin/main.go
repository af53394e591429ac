// Command admin manages companies, awards and operator accounts from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"spilledin/internal/config"
	"spilledin/internal/database"
	"spilledin/internal/models"
	"spilledin/internal/repository"
	"spilledin/internal/service"
	"spilledin/internal/validation"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var db *gorm.DB

func main() {
	rootCmd := &cobra.Command{
		Use:          "admin",
		Short:        "SpilledIn operator tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err = database.Connect(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(companyCmd())
	rootCmd.AddCommand(awardsCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func companyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Create, list and rotate invite codes of companies",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			code, _ := cmd.Flags().GetString("invite-code")

			name = strings.TrimSpace(name)
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			code = validation.NormalizeInviteCode(code)
			if code == "" {
				code = newInviteCode()
			}
			if err := validation.ValidateInviteCode(code); err != nil {
				return err
			}

			company := &models.Company{Name: name, InviteCode: code}
			if err := repository.NewCompanyRepository(db).Create(cmd.Context(), company); err != nil {
				return err
			}
			fmt.Printf("created company %d %q with invite code %s\n", company.ID, company.Name, company.InviteCode)
			return nil
		},
	}
	create.Flags().String("name", "", "Company name")
	create.Flags().String("invite-code", "", "Invite code (generated when empty)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			companies, err := repository.NewCompanyRepository(db).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(companies) == 0 {
				fmt.Println("no companies")
				return nil
			}
			for _, c := range companies {
				fmt.Printf("%-6d %-12s %s\n", c.ID, c.InviteCode, c.Name)
			}
			return nil
		},
	}

	rotate := &cobra.Command{
		Use:   "rotate-invite <company_id>",
		Short: "Replace a company's invite code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			code, _ := cmd.Flags().GetString("code")
			code = validation.NormalizeInviteCode(code)
			if code == "" {
				code = newInviteCode()
			}
			if err := validation.ValidateInviteCode(code); err != nil {
				return err
			}

			company, err := repository.NewCompanyRepository(db).UpdateInviteCode(cmd.Context(), id, code)
			if err != nil {
				return err
			}
			fmt.Printf("%s now joins with invite code %s\n", company.Name, code)
			return nil
		},
	}
	rotate.Flags().String("code", "", "New invite code (generated when empty)")

	cmd.AddCommand(create, list, rotate)
	return cmd
}

func awardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "awards",
		Short: "Monthly award tools",
	}

	grant := &cobra.Command{
		Use:   "grant",
		Short: "Grant the monthly awards of a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, _ := cmd.Flags().GetUint("company")
			month, _ := cmd.Flags().GetInt("month")
			year, _ := cmd.Flags().GetInt("year")
			return grantAwards(cmd.Context(), companyID, month, year)
		},
	}
	grant.Flags().Uint("company", 0, "Company ID")
	grant.Flags().Int("month", 0, "Month (1-12)")
	grant.Flags().Int("year", 0, "Year")
	_ = grant.MarkFlagRequired("company")
	_ = grant.MarkFlagRequired("month")
	_ = grant.MarkFlagRequired("year")

	cmd.AddCommand(grant)
	return cmd
}

func grantAwards(ctx context.Context, companyID uint, month, year int) error {
	if err := validation.ValidatePeriod(month, year); err != nil {
		return err
	}
	if _, err := repository.NewCompanyRepository(db).GetByID(ctx, companyID); err != nil {
		return err
	}

	awards, err := service.NewAwardService(repository.NewAwardRepository(db)).GrantMonthly(ctx, companyID, month, year)
	if err != nil {
		return err
	}
	if len(awards) == 0 {
		fmt.Println("no new awards")
		return nil
	}
	for _, a := range awards {
		fmt.Printf("user %d: %s\n", a.UserID, a.AwardType)
	}
	return nil
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Operator account tools",
	}

	for _, admin := range []bool{true, false} {
		use, short := "promote <user_id>", "Grant admin access"
		if !admin {
			use, short = "demote <user_id>", "Revoke admin access"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := repository.NewUserRepository(db).SetAdmin(cmd.Context(), id, admin); err != nil {
					return err
				}
				fmt.Printf("user %d admin=%t\n", id, admin)
				return nil
			},
		})
	}
	return cmd
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
}
