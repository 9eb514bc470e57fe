package patient

var firstNames = map[Sex][]string{
	Male:   {"Liam", "Noah", "Mateo", "Elijah", "Lucas", "Mason", "Ethan", "Kai", "Leo", "Jayden"},
	Female: {"Emma", "Olivia", "Amara", "Sofia", "Isabella", "Mia", "Luna", "Harper", "Zoe", "Aria"},
}

var parentNames = []string{
	"Sarah", "Maria", "Keisha", "Priya", "Amanda",
	"Michael", "David", "Carlos", "Brian", "Tuan",
}

var lastNames = []string{
	"Smith", "Johnson", "Nguyen", "Brown", "Patel",
	"Garcia", "Miller", "Okafor", "Rodriguez", "Kim",
}
