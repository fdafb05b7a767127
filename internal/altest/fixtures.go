// Package altest holds AL source fixtures and position helpers shared by the
// package tests.
package altest

import (
	"fmt"
	"strings"
)

// URIs of the fixture documents.
const (
	InterfaceURI = "file:///ws/IAddressProvider.Interface.al"
	ProviderURI  = "file:///ws/CompanyAddressProvider.Codeunit.al"
	Provider2URI = "file:///ws/CompanyAddressProvider2.Codeunit.al"
	UnrelatedURI = "file:///ws/Unrelated.Codeunit.al"
	CustomerURI  = "file:///ws/Customer.Table.al"
	CustExtURI   = "file:///ws/CustomerExt.TableExt.al"
	CardURI      = "file:///ws/CustomerCard.Page.al"
	ColorURI     = "file:///ws/Color.Enum.al"
	ShadowURI    = "file:///ws/Shadow.Codeunit.al"
)

const Interface = `interface IAddressProvider
{
    procedure GetAddress(): Text;
    procedure SetAddress(NewAddress: Text; Country: Code[10]);
}
`

const Provider = `codeunit 50200 CompanyAddressProvider implements IAddressProvider
{
    procedure GetAddress(): Text
    var
        ExampleAddressLbl: Label 'Company address \ Denmark 2800';
    begin
        exit(ExampleAddressLbl);
    end;

    procedure SetAddress(NewAddress: Text; Country: Code[10])
    begin
    end;

    procedure HelloWorld()
    var
        AddressProvider: Interface IAddressProvider;
    begin
        AddressProvider.GetAddress();
        GetAddress();
    end;
}
`

const Provider2 = `codeunit 50201 CompanyAddressProvider2 implements IAddressProvider
{
    procedure GetAddress(): Text
    var
        ExampleAddressLbl: Label 'Company address \ Denmark 2800';
    begin
        exit(ExampleAddressLbl);
    end;

    procedure SetAddress(NewAddress: Text; Country: Code[10])
    begin
    end;

    procedure HelloWorld()
    var
        IAddressProvider: Interface IAddressProvider;
    begin
        IAddressProvider.GetAddress();
        IAddressProvider.SetAddress('Main Street', 'DK');
    end;
}
`

// Unrelated declares a GetAddress local that must never be confused with the
// interface method.
const Unrelated = `codeunit 50300 Unrelated
{
    procedure Run()
    var
        GetAddress: Text;
    begin
        GetAddress := 'x';
    end;
}
`

const Customer = `table 50100 Customer
{
    Caption = 'Customer';

    fields
    {
        field(1; "No."; Code[20]) { }
        field(2; Name; Text[100])
        {
            trigger OnValidate()
            begin
                "Search Name" := Name;
            end;
        }
        field(3; "Phone No."; Text[30]) { }
        field(4; "Balance (LCY)"; Decimal) { }
        field(5; "Search Name"; Code[100]) { }
    }

    keys
    {
        key(PK; "No.") { Clustered = true; }
        key(Name; Name, "No.") { }
    }

    fieldgroups
    {
        fieldgroup(DropDown; "No.", Name) { }
    }

    procedure Describe(Prefix: Text): Text
    begin
        exit(Prefix + "No." + Name);
    end;
}
`

const CustomerExt = `tableextension 50101 CustomerExt extends Customer
{
    fields
    {
        field(50100; Loyalty; Integer) { }
    }

    procedure Bump()
    begin
        Rec.Loyalty += 1;
        Rec.Describe('x');
    end;
}
`

const Card = `page 50102 "Customer Card"
{
    PageType = Card;
    SourceTable = Customer;

    layout
    {
        area(Content)
        {
            field("No."; Rec."No.") { }
            field(Name; Rec.Name) { }
        }
    }

    trigger OnOpenPage()
    var
        Cust: Record Customer;
        Col: Enum Color;
    begin
        Cust.Get('10000');
        Col := Color::Red;
        with Cust do
            Name := 'Adatum';
        Message(Cust.Describe('Name: '));
    end;
}
`

const Color = `enum 50103 Color
{
    value(0; Red) { }
    value(1; "Light Blue") { }
}
`

// Shadow exercises lookup precedence between global and local declarations.
const Shadow = `codeunit 50400 Shadow
{
    var
        Counter: Integer;
        Total: Decimal;

    procedure Outer()
    begin
        Counter := 1;
        Total := Counter;
    end;

    procedure Inner(Amount: Decimal)
    var
        Counter: Integer;
    begin
        Counter := 2;
        Total := Total + Amount + Counter;
    end;

    local procedure Sum(A: Integer; B: Integer): Integer
    begin
        exit(A + B);
    end;

    procedure CallSum()
    begin
        Sum(1, 2);
    end;
}
`

// Doc pairs a URI with its source text.
type Doc struct {
	URI  string
	Text string
}

// AddressDocs are the interface, both implementors and the unrelated codeunit.
func AddressDocs() []Doc {
	return []Doc{
		{InterfaceURI, Interface},
		{ProviderURI, Provider},
		{Provider2URI, Provider2},
		{UnrelatedURI, Unrelated},
	}
}

// AllDocs returns every fixture document in a stable order.
func AllDocs() []Doc {
	return append(AddressDocs(),
		Doc{CustomerURI, Customer},
		Doc{CustExtURI, CustomerExt},
		Doc{CardURI, Card},
		Doc{ColorURI, Color},
		Doc{ShadowURI, Shadow},
	)
}

// Offset returns the byte offset of the nth (zero-based) occurrence of needle
// in src. It panics when there is no such occurrence, which in a test is a
// fixture bug.
func Offset(src, needle string, nth int) int {
	base := 0
	for i := 0; ; i++ {
		idx := strings.Index(src[base:], needle)
		if idx < 0 {
			panic(fmt.Sprintf("altest: occurrence %d of %q not found", nth, needle))
		}
		if i == nth {
			return base + idx
		}
		base += idx + len(needle)
	}
}

// Line returns the zero-based line containing off.
func Line(src string, off int) int {
	return strings.Count(src[:off], "\n")
}
