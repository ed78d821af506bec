package store

// Apply aplica p sobre una copia de u y la retorna. Es el único lugar donde
// se interpreta la semántica del Patch; los adapters in-process (memory, fs)
// lo llaman bajo su lock para garantizar la atomicidad por registro.
func Apply(u *User, p Patch) *User {
	out := u.Clone()

	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.PasswordHash != nil {
		out.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		out.Role = *p.Role
	}
	if p.IsVerified != nil {
		out.IsVerified = *p.IsVerified
	}
	if p.VerificationCode != nil {
		out.VerificationCode = *p.VerificationCode
	}
	if p.VerificationCodeExpiry != nil {
		out.VerificationCodeExpiry = *p.VerificationCodeExpiry
	}
	if p.ResetCode != nil {
		out.ResetCode = *p.ResetCode
	}
	if p.ResetCodeExpiry != nil {
		out.ResetCodeExpiry = *p.ResetCodeExpiry
	}

	// Set de refresh tokens: difference, después union, en el mismo paso.
	if p.ClearRefreshTokenIDs {
		out.RefreshTokenIDs = nil
	} else if len(p.RemoveRefreshTokenIDs) > 0 {
		keep := out.RefreshTokenIDs[:0:0]
		for _, id := range out.RefreshTokenIDs {
			if !contains(p.RemoveRefreshTokenIDs, id) {
				keep = append(keep, id)
			}
		}
		out.RefreshTokenIDs = keep
	}
	for _, id := range p.AddRefreshTokenIDs {
		if !out.HasRefreshTokenID(id) {
			out.RefreshTokenIDs = append(out.RefreshTokenIDs, id)
		}
	}

	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
