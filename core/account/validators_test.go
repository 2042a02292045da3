package account

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordwise/backend/core"
)

func Test_checkPassword(t *testing.T) {
	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{name: "empty", pwd: "", want: ""},
		{name: "too short", pwd: "Ab1!", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 123!", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no upper", pwd: "abcdefg1!", want: pwdComplexityTag},
		{name: "no special", pwd: "Abcdefg12", want: pwdComplexityTag},
		{name: "like first name", pwd: "Jonathan1!", want: pwdAttrSimTag},
		{name: "like email", pwd: "Jsmith-99", want: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd", want: pwdNoCommonTag},
		{name: "strong", pwd: "Str0ng!Passw0rd#", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkPassword(tt.pwd, "Jonathan", "Doe", "jsmith99@test.local"); got != tt.want {
				t.Errorf("checkPassword() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	na := NewAccount{
		Email:           "jane@test.local",
		FirstName:       "Jane",
		LastName:        "Doe",
		Password:        "Str0ng!Passw0rd#",
		PasswordConfirm: "Str0ng!Passw0rd#",
		Role:            RoleTeacher,
	}
	assert.NoError(t, validate.Struct(na))

	na.Role = "admin"
	na.PasswordConfirm = "other"
	err := validate.Struct(na)
	require.Error(t, err)

	fldErrs := make(map[string]string)
	for _, fe := range err.(validator.ValidationErrors) {
		fldErrs[fe.Field()] = fe.Translate(translator)
	}
	assert.Equal(t, roleText, fldErrs["role"])
	assert.Contains(t, fldErrs, "passwordConfirm")

	pc := PasswordChange{Email: "jane@test.local", FirstName: "Jane", LastName: "Doe", Password: "short", PasswordConfirm: "short"}
	err = validate.Struct(pc)
	require.Error(t, err)
	fe := err.(validator.ValidationErrors)[0]
	assert.Equal(t, "password", fe.Field())
	assert.Equal(t, pwdMinLenText, fe.Translate(translator))
}
