package extraction

// networkIsolation estimates from audience size alone how cut off an account
// is from the rest of the network, in [0, 0.75]
func networkIsolation(followers, following float64) float64 {
	var followerFactor float64
	switch {
	case followers < 10:
		followerFactor = 0.8
	case followers < 50:
		followerFactor = 0.5
	case followers < 100:
		followerFactor = 0.3
	default:
		followerFactor = 0.1
	}

	followingFactor := 0.2
	switch {
	case following > 1000 && followers < 100:
		followingFactor = 0.7
	case following > 500 && followers < 50:
		followingFactor = 0.6
	}

	return 0.5*followerFactor + 0.5*followingFactor
}
