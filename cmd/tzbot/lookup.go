package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Restitutor/TZBot4TS/pkg/output"
	"github.com/Restitutor/TZBot4TS/pkg/protocol"
	"github.com/Restitutor/TZBot4TS/pkg/tzbot"
)

// unsuccessfulError reports a reply whose code is not 2xx/3xx. The reply has
// already been printed, so main only sets the exit status.
type unsuccessfulError struct {
	code int
}

func (e *unsuccessfulError) Error() string {
	return fmt.Sprintf("service answered with code %d", e.code)
}

// exchange sends p once and prints the reply.
func exchange(cmd *cobra.Command, p tzbot.Payload) error {
	flags, err := requestFlags()
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := client.Send(cmd.Context(), p, flags...)
	if err != nil {
		return fmt.Errorf("%s: %w", p.RequestType(), err)
	}
	res := output.NewResult(p.RequestType(), protocol.FlagSet(flags).Strings(), resp, time.Since(start))
	fmt.Fprint(cmd.OutOrStdout(), formatter.Format(res))
	if !resp.IsSuccessful() {
		return &unsuccessfulError{code: resp.Code}
	}
	return nil
}

// lookupCmd builds a one-argument command whose payload comes from build.
func lookupCmd(use, short string, build func(arg string) (tzbot.Payload, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := build(args[0])
			if err != nil {
				return err
			}
			return exchange(cmd, p)
		},
	}
}

var pingCount int

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the service answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pingCount < 1 {
			return fmt.Errorf("--count must be at least 1, got %d", pingCount)
		}
		for i := 0; i < pingCount; i++ {
			if err := exchange(cmd, tzbot.Ping{}); err != nil {
				return err
			}
		}
		return nil
	},
}

var tzIPCmd = lookupCmd("tz-ip <ip>", "Timezone of an IP address", func(arg string) (tzbot.Payload, error) {
	p, err := tzbot.NewTimezoneFromIP(arg)
	if err != nil {
		return nil, err
	}
	return p, nil
})

var tzUserCmd = lookupCmd("tz-user <user-id>", "Timezone registered for a user id", func(arg string) (tzbot.Payload, error) {
	id, err := tzbot.ValidateUserID(arg)
	if err != nil {
		return nil, err
	}
	return tzbot.TimezoneFromUserID{UserID: id}, nil
})

var tzUUIDCmd = lookupCmd("tz-uuid <uuid>", "Timezone registered for a UUID", func(arg string) (tzbot.Payload, error) {
	u, err := tzbot.NormalizeUUID(arg)
	if err != nil {
		return nil, err
	}
	return tzbot.TimezoneFromUUID{UUID: u}, nil
})

var userIDCmd = lookupCmd("userid <uuid>", "User id linked to a UUID", func(arg string) (tzbot.Payload, error) {
	u, err := tzbot.NormalizeUUID(arg)
	if err != nil {
		return nil, err
	}
	return tzbot.UserIDFromUUID{UUID: u}, nil
})

var uuidCmd = lookupCmd("uuid <user-id>", "UUID linked to a user id", func(arg string) (tzbot.Payload, error) {
	id, err := tzbot.ValidateUserID(arg)
	if err != nil {
		return nil, err
	}
	return tzbot.UUIDFromUserID{UserID: id}, nil
})

func init() {
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 1, "number of pings to send")
	rootCmd.AddCommand(pingCmd, tzIPCmd, tzUserCmd, tzUUIDCmd, userIDCmd, uuidCmd)
}
