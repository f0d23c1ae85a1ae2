package vault

import "tokenized-vault/internal/domain"

// Whitelist state machine. Each target moves absent -> enabled via
// AddProtocol and enabled <-> disabled via SetProtocolEnabled; nothing
// removes a target, so a disabled entry keeps its historical invested total.

// AddProtocol appends target to the registry, enabled, with a zero invested
// total. Fails if the label is too long, the target is already present, or
// the registry is at capacity. The registry is unchanged on any error.
func AddProtocol(r *domain.ProtocolRegistry, target, name string) error {
	if len(name) > domain.MaxProtocolNameLen {
		return ErrNameTooLong
	}
	if r.FindProtocol(target) != nil {
		return ErrProtocolAlreadyApproved
	}
	if len(r.Protocols) >= domain.MaxProtocols {
		return ErrRegistryFull
	}
	r.Protocols = append(r.Protocols, domain.ApprovedProtocol{
		Target:  target,
		Enabled: true,
		Name:    name,
	})
	return nil
}

// SetProtocolEnabled sets the enabled flag for target. Setting the current
// state again is accepted and changes nothing else.
func SetProtocolEnabled(r *domain.ProtocolRegistry, target string, enabled bool) error {
	p := r.FindProtocol(target)
	if p == nil {
		return ErrProtocolNotFound
	}
	p.Enabled = enabled
	return nil
}

// approvedProtocol resolves target for an investment. An unknown target and
// a disabled one are distinct errors internally, but both wrap
// ErrProtocolNotApproved so external callers observe a single denial.
func approvedProtocol(r *domain.ProtocolRegistry, target string) (*domain.ApprovedProtocol, error) {
	p := r.FindProtocol(target)
	if p == nil {
		return nil, ErrProtocolNotWhitelisted
	}
	if !p.Enabled {
		return nil, ErrProtocolDisabled
	}
	return p, nil
}

// recordInvestment adds amount to the entry's cumulative invested total.
func recordInvestment(p *domain.ApprovedProtocol, amount uint64) error {
	total, err := checkedAdd(p.InvestedAmount, amount)
	if err != nil {
		return err
	}
	p.InvestedAmount = total
	return nil
}
