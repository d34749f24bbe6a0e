package signing

const (
	// ClobDomainName is the EIP-712 domain for CLOB auth.
	ClobDomainName = "ClobAuthDomain"

	// ClobVersion is the EIP-712 domain version.
	ClobVersion = "1"

	// MsgToSign is the attestation message the CLOB expects.
	MsgToSign = "This message attests that I control the given wallet"
)
