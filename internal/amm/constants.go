package amm

// LPMintDecimals is the conventional decimal precision of LP shares. It is
// not stored on the LP mint: the token adapter's mint record
// (token.MintData) has no decimals field, and no handler reads this value.
const LPMintDecimals = 9

// RentExemptMinimum approximates the lamport floor a validator would
// enforce on an account sized to one Pool record. The real figure is a
// function of account size and a network-wide rent table; this constant
// stands in for that table in the ambient runtime so the native-asset
// rent-floor invariant (spec §4.4, §9) has something concrete to check
// against.
const RentExemptMinimum uint64 = 1_002_240
