package rate

func loginSubjectKey(subject string) string {
	return "al:" + subject
}

func loginIPKey(ip string) string {
	return "ali:" + ip
}

func refreshKey(jti string) string {
	return "ar:" + jti
}
