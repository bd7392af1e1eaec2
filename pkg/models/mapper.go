package models

// ToDTO maps a persisted user to its transfer shape.
func ToDTO(u User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
	}
}

// ToDTOs maps a slice of users. The result is never nil.
func ToDTOs(users []User) []UserDTO {
	dtos := make([]UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, ToDTO(u))
	}
	return dtos
}

// FromRequest copies a validated request into a UserInput. A nil age maps to 0.
func FromRequest(r UserRequest) UserInput {
	in := UserInput{Name: r.Name, Email: r.Email}
	if r.Age != nil {
		in.Age = *r.Age
	}
	return in
}

// FromInput builds a new, unsaved user from request fields.
func FromInput(in UserInput) User {
	return User{
		Name:  in.Name,
		Email: in.Email,
		Age:   in.Age,
	}
}

// ApplyInput overwrites the mutable fields of u. ID and CreatedAt are kept.
func ApplyInput(u *User, in UserInput) {
	u.Name = in.Name
	u.Email = in.Email
	u.Age = in.Age
}
