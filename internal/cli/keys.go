package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ronchon/server/internal/domain/entitlement"
)

// keyFlags selects a client key either verbatim or from the same metadata the
// HTTP middleware derives it from.
type keyFlags struct {
	instanceID string
	address    string
}

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.instanceID, "instance-id", "", "Derive the key from a client install id")
	cmd.Flags().StringVar(&f.address, "ip", "", "Derive the key from a client address")
}

func (f *keyFlags) resolve(args []string, deriver *entitlement.KeyDeriver) (string, error) {
	if len(args) == 1 {
		if f.instanceID != "" || f.address != "" {
			return "", errors.New("pass either a client key or --instance-id/--ip, not both")
		}
		return args[0], nil
	}
	if f.instanceID == "" && f.address == "" {
		return "", errors.New("a client key, --instance-id or --ip is required")
	}
	key := deriver.Derive(entitlement.ClientMetadata{InstanceID: f.instanceID, PeerAddress: f.address})
	if key == entitlement.AnonymousKey {
		return "", errors.New("no usable identity in --instance-id/--ip")
	}
	return key, nil
}
