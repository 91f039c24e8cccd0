package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiebiao/storefront/internal/bootstrap"
	"github.com/xiebiao/storefront/pkg/jwt"
)

// newTokenCmd 签发Token(联调、支付网关服务账号)
func newTokenCmd(opts *options) *cobra.Command {
	var userID uint
	var role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发访问Token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return fmt.Errorf("必须指定 --user-id")
			}
			if role != jwt.RoleCustomer && role != jwt.RoleAdmin {
				return fmt.Errorf("无效的角色 %q(可选: %s, %s)", role, jwt.RoleCustomer, jwt.RoleAdmin)
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			token, err := bootstrap.ProvideJWTManager(cfg).GenerateToken(userID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "用户ID")
	cmd.Flags().StringVar(&role, "role", jwt.RoleCustomer, "角色(customer | admin)")
	return cmd
}
