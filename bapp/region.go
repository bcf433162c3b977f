package bapp

// Region selects the AWS region a client is created for.
type Region interface {
	resolve(env Environment) string
}

type localRegion struct{}

func (localRegion) resolve(env Environment) string { return env.awsRegion() }

// LocalRegion returns a Region that uses AWS_REGION, the region the app runs in.
func LocalRegion() Region {
	return localRegion{}
}

type primaryRegion struct{}

func (primaryRegion) resolve(env Environment) string { return env.primaryRegion() }

// PrimaryRegion returns a Region that uses BW_PRIMARY_REGION.
// Use this for cross-region operations that must target the primary deployment region.
func PrimaryRegion() Region {
	return primaryRegion{}
}

type fixedRegion string

func (r fixedRegion) resolve(Environment) string { return string(r) }

// FixedRegion returns a Region that uses a specific region string.
func FixedRegion(region string) Region {
	return fixedRegion(region)
}
