package domain

// BloodGroup 血型（ABO + Rh）
type BloodGroup string

const (
	BloodONeg  BloodGroup = "O-"
	BloodOPos  BloodGroup = "O+"
	BloodANeg  BloodGroup = "A-"
	BloodAPos  BloodGroup = "A+"
	BloodBNeg  BloodGroup = "B-"
	BloodBPos  BloodGroup = "B+"
	BloodABNeg BloodGroup = "AB-"
	BloodABPos BloodGroup = "AB+"
)

// donorsFor[受血方] = 可供血的血型集合
var donorsFor = map[BloodGroup][]BloodGroup{
	BloodONeg:  {BloodONeg},
	BloodOPos:  {BloodONeg, BloodOPos},
	BloodANeg:  {BloodONeg, BloodANeg},
	BloodAPos:  {BloodONeg, BloodOPos, BloodANeg, BloodAPos},
	BloodBNeg:  {BloodONeg, BloodBNeg},
	BloodBPos:  {BloodONeg, BloodOPos, BloodBNeg, BloodBPos},
	BloodABNeg: {BloodONeg, BloodANeg, BloodBNeg, BloodABNeg},
	BloodABPos: {BloodONeg, BloodOPos, BloodANeg, BloodAPos, BloodBNeg, BloodBPos, BloodABNeg, BloodABPos},
}

func (b BloodGroup) Valid() bool {
	_, ok := donorsFor[b]
	return ok
}

// CompatibleDonors 返回能给 needed 供血的血型；未知血型返回 nil
func CompatibleDonors(needed BloodGroup) []BloodGroup {
	return donorsFor[needed]
}

// CanDonateTo donor 血型是否可供给 recipient
func CanDonateTo(donor, recipient BloodGroup) bool {
	for _, g := range donorsFor[recipient] {
		if g == donor {
			return true
		}
	}
	return false
}
