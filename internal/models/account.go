package models

import (
	"errors"
	"fmt"
)

// Account 客户与员工共用的账号字段
type Account struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Password string `json:"-" db:"password"`
}

// ValidatePassword 明文比较密码
func (a *Account) ValidatePassword(input string) bool {
	return a.Password == input
}

// CSVRecord 列顺序: id,name,password
func (a *Account) CSVRecord() []string {
	return []string{a.ID, a.Name, a.Password}
}

func parseAccount(kind string, fields []string) (Account, error) {
	if len(fields) < 3 {
		return Account{}, fmt.Errorf("%s record: want 3 fields, got %d", kind, len(fields))
	}
	f := trimAll(fields)
	if f[0] == "" {
		return Account{}, errors.New(kind + " id is empty")
	}
	return Account{ID: f[0], Name: f[1], Password: f[2]}, nil
}

// Customer 客户
type Customer struct {
	Account
}

// NewCustomer 创建客户
func NewCustomer(id, name, password string) *Customer {
	return &Customer{Account{ID: id, Name: name, Password: password}}
}

// ParseCustomerRecord 解析客户记录
func ParseCustomerRecord(fields []string) (*Customer, error) {
	acc, err := parseAccount("customer", fields)
	if err != nil {
		return nil, err
	}
	return &Customer{acc}, nil
}

// CompanyAgent 公司员工，与客户分开存储
type CompanyAgent struct {
	Account
}

// NewCompanyAgent 创建员工
func NewCompanyAgent(id, name, password string) *CompanyAgent {
	return &CompanyAgent{Account{ID: id, Name: name, Password: password}}
}

// ParseAgentRecord 解析员工记录
func ParseAgentRecord(fields []string) (*CompanyAgent, error) {
	acc, err := parseAccount("agent", fields)
	if err != nil {
		return nil, err
	}
	return &CompanyAgent{acc}, nil
}
